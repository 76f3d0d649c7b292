package server

import (
	"context"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

// Default ACL with superuser model for Casbin authorization. Subjects are
// client certificate common names, objects are channel names.
// Ref: https://github.com/casbin/casbin/blob/master/examples/basic_with_root_model.conf
var DefaultACLAuthzModel string = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act || r.sub == "root"
`

const actionOpen = "open"

type clientIDKey struct{}

// authzEnforcer guards channel access with a Casbin policy.
type authzEnforcer struct {
	enforcer  *casbin.Enforcer
	authzLock sync.RWMutex
}

func newAuthzEnforcer(policyPath string) (*authzEnforcer, error) {
	m, err := model.NewModelFromString(DefaultACLAuthzModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, err
	}
	return &authzEnforcer{enforcer: enforcer}, nil
}

// authorize reports whether clientID may perform action on the channel.
func (a *authzEnforcer) authorize(clientID, channelName, action string) (bool, error) {
	a.authzLock.RLock()
	defer a.authzLock.RUnlock()
	return a.enforcer.Enforce(clientID, channelName, action)
}

// reload reloads the policy from storage.
func (a *authzEnforcer) reload() error {
	a.authzLock.Lock()
	defer a.authzLock.Unlock()
	return a.enforcer.LoadPolicy()
}

// addUserContext parses client ID from context and set client ID in context
func addUserContext(ctx context.Context) context.Context {
	p, ok := peer.FromContext(ctx)
	if !ok || p.AuthInfo == nil {
		return ctx
	}

	tlsInfo, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return ctx
	}

	if len(tlsInfo.State.VerifiedChains) == 0 || len(tlsInfo.State.VerifiedChains[0]) == 0 {
		return ctx
	}

	clientName := tlsInfo.State.VerifiedChains[0][0].Subject.CommonName
	return context.WithValue(ctx, clientIDKey{}, clientName)
}

// clientIDFromContext returns the client set by addUserContext, if any.
func clientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}

// AuthzUnaryInterceptor gets user from TLS-authenticated request and add user to ctx
func AuthzUnaryInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	return handler(addUserContext(ctx), req)
}
