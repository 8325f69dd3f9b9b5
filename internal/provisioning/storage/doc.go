// Package storage declares the persistent volume of the search workload: an
// encrypted elastic file system, one mount target per subnet and an access
// point rooted at the workload's data directory.
//
// The access point is only usable once every mount target exists, so it
// depends on all of them. Mount targets wait for the NFS ingress rule; a
// mount target behind a closed port never becomes reachable.
package storage
