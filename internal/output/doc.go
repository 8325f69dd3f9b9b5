// Package output provides deferred values for resource attributes that are
// only known once the owning resource has been created.
//
// A [Promise] is the write side held by the reconciler; an [Output] is the
// read side handed to dependent resource declarations. Outputs record the
// names of the resources they originate from so that a consumer's inputs
// can be turned into "consumes output of" graph edges.
//
//	p := output.NewPromise[string]("network/vpc")
//	vpcID := p.Output()
//	cidr := output.Map(vpcID, func(id string) (string, error) { return id + "/cidr", nil })
//	p.Resolve("vpc-123")
//	v, err := cidr.Await(ctx)
package output
