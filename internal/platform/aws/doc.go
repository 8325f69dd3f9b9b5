// Package aws implements resource handlers for the AWS services the search
// stack runs on: EC2 networking, EFS, Elastic Load Balancing v2 and ECS on
// Fargate. Secrets Manager is used to check admin key references.
//
// Every handler adopts resources left behind by an interrupted run (by Name
// tag, creation token or unique name), retries throttling and eventual
// consistency errors with exponential backoff, and treats "not found" on
// delete as success.
//
// Handlers talk to the services through the narrow interfaces in api.go so
// they can be tested with Func-field mocks.
package aws
