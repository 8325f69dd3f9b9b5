// Package compute declares the container platform that runs the search
// workload: a cluster, a Fargate task definition mounting the persistent
// volume and a service holding exactly one task behind the load balancer.
//
// The admin API key reaches the container as an environment binding, either
// as a masked literal or as a Secrets Manager reference resolved at declare
// time. It is never part of the container command line.
package compute
