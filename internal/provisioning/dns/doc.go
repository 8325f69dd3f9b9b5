// Package dns binds the public hostname of the stack to the load balancer
// through a proxied Cloudflare CNAME record.
package dns
