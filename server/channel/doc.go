// Package channel implements the two exclusive-access shift channels served
// by shiftd.
//
// A Registry owns exactly one Channel per identity: Encrypt rotates written
// bytes forward by the configured shift, Decrypt rotates them back. A caller
// acquires a Channel to obtain a Session, writes up to Capacity bytes, reads
// the transformed bytes back in chunks of any size and closes the Session so
// another caller can acquire the Channel.
//
//	s, err := registry.Open(channel.Encrypt)
//	if err != nil {
//		return err // ErrBusy while another session holds it
//	}
//	defer s.Close()
//	s.Write([]byte("Hello"))
//	out, _ := s.Read(64) // "Khoor"
//
// Acquire never blocks. Contention is reported as ErrBusy.
package channel
