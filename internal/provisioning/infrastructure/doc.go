// Package infrastructure declares the network fabric, the firewall policy and
// the load balancing layer of a search stack.
//
// The network is a VPC with one public subnet per availability zone, routed
// through an internet gateway, and a single security group shared by the
// load balancer, the mount targets and the service. The security group holds
// exactly three rules. The load balancer spans every subnet and forwards its
// listener port to an IP target group health-checked on the workload's
// liveness endpoint.
package infrastructure
