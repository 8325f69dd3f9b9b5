package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/state"
)

// Stack output keys persisted in the snapshot.
const (
	OutputInternalEndpoint = "internalEndpoint"
	OutputExternalEndpoint = "externalEndpoint"
)

// ErrNotDeployed is returned by Outputs for a stack without recorded outputs.
var ErrNotDeployed = errors.New("orchestration: stack has no recorded outputs")

// Endpoints are the URLs the stack is reachable at.
type Endpoints struct {
	// Internal addresses the load balancer directly over HTTP.
	Internal string
	// External addresses the public hostname over HTTPS. It is only set
	// once the DNS record resolved to a non-empty hostname.
	External string
}

// InternalEndpoint formats the load balancer URL.
func InternalEndpoint(lbHost string) string {
	return fmt.Sprintf("http://%s/", lbHost)
}

// ExternalEndpoint formats the public URL.
func ExternalEndpoint(hostname string) string {
	return fmt.Sprintf("https://%s/", hostname)
}

// resolveEndpoints reads whatever endpoints are known. Unknown or failed
// values leave the field empty.
func resolveEndpoints(ctx context.Context, st *provisioning.State) Endpoints {
	var ep Endpoints
	if st.LoadBalancer != nil && st.LoadBalancer.DNSName.IsResolved() {
		if host, err := st.LoadBalancer.DNSName.Await(ctx); err == nil && host != "" {
			ep.Internal = InternalEndpoint(host)
		}
	}
	if st.DNS != nil && st.DNS.Hostname.IsResolved() {
		if host, err := st.DNS.Hostname.Await(ctx); err == nil && host != "" {
			ep.External = ExternalEndpoint(host)
		}
	}
	return ep
}

func (e Endpoints) toMap() map[string]string {
	m := map[string]string{}
	if e.Internal != "" {
		m[OutputInternalEndpoint] = e.Internal
	}
	if e.External != "" {
		m[OutputExternalEndpoint] = e.External
	}
	return m
}

func endpointsFrom(snap *state.Snapshot) Endpoints {
	return Endpoints{
		Internal: snap.Outputs[OutputInternalEndpoint],
		External: snap.Outputs[OutputExternalEndpoint],
	}
}
