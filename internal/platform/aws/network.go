package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/searchstack/internal/resource"
)

const defaultRouteCIDR = "0.0.0.0/0"

// updateEC2Tags overwrites the tags of an EC2 resource.
func updateEC2Tags(ctx context.Context, b base, api EC2API, id string, p resource.Properties) error {
	m := tagMap(p)
	if len(m) == 0 {
		return nil
	}
	return b.create(ctx, func(ctx context.Context) error {
		_, err := api.CreateTags(ctx, &ec2.CreateTagsInput{Resources: []string{id}, Tags: ec2Tags(m)})
		return err
	})
}

// VpcHandler manages aws:ec2:Vpc.
//
// Inputs: cidrBlock, enableDnsHostnames, enableDnsSupport, tags.
// Outputs: id, cidrBlock.
type VpcHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer.
func (h *VpcHandler) ReplaceOnChange() []string { return []string{"cidrBlock"} }

func (h *VpcHandler) find(ctx context.Context, req *resource.CreateRequest) (string, bool, error) {
	if nameTag(req.Inputs) == "" {
		return "", false, nil
	}
	out, err := h.api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{Filters: nameFilter(req.Inputs)})
	if err != nil {
		return "", false, fmt.Errorf("failed to describe vpcs: %w", err)
	}
	for _, v := range out.Vpcs {
		if id := aws.ToString(v.VpcId); aws.ToString(v.CidrBlock) == req.Inputs.String("cidrBlock") && adoptable(req, id) {
			return id, true, nil
		}
	}
	return "", false, nil
}

// Create implements resource.Handler.
func (h *VpcHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	cidr, err := required(req.Inputs, "cidrBlock")
	if err != nil {
		return nil, err
	}
	id, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) { return h.find(ctx, req) },
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateVpc(ctx, &ec2.CreateVpcInput{
				CidrBlock:         aws.String(cidr),
				TagSpecifications: ec2TagSpec(ec2types.ResourceTypeVpc, tagMap(req.Inputs)),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Vpc.VpcId), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create vpc: %w", err)
	}
	if err := h.setDNS(ctx, id, req.Inputs); err != nil {
		return nil, err
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{resource.OutputID: id, "cidrBlock": cidr}}, nil
}

func (h *VpcHandler) setDNS(ctx context.Context, id string, p resource.Properties) error {
	// One attribute per call.
	attrs := []*ec2.ModifyVpcAttributeInput{
		{VpcId: aws.String(id), EnableDnsSupport: &ec2types.AttributeBooleanValue{Value: aws.Bool(p.Bool("enableDnsSupport"))}},
		{VpcId: aws.String(id), EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: aws.Bool(p.Bool("enableDnsHostnames"))}},
	}
	for _, in := range attrs {
		err := h.create(ctx, func(ctx context.Context) error {
			_, err := h.api.ModifyVpcAttribute(ctx, in)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to set dns attributes of vpc %s: %w", id, err)
		}
	}
	return nil
}

// Update implements resource.Handler.
func (h *VpcHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if changed(req, "enableDnsHostnames", "enableDnsSupport") {
		if err := h.setDNS(ctx, req.ID, req.Inputs); err != nil {
			return nil, err
		}
	}
	if changed(req, keyTags) {
		if err := updateEC2Tags(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
			return nil, fmt.Errorf("failed to tag vpc %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *VpcHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete vpc %s: %w", req.ID, err)
	}
	return nil
}

// Read implements resource.Reader.
func (h *VpcHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	out, err := h.api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{id}})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe vpc %s: %w", id, err)
	}
	if len(out.Vpcs) == 0 {
		return nil, false, nil
	}
	return outputs, true, nil
}

// WaitReady implements resource.Waiter.
func (h *VpcHandler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	return h.waitFor(ctx, "vpc "+id, func(ctx context.Context) (bool, error) {
		out, err := h.api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{id}})
		if err != nil {
			return false, err
		}
		return len(out.Vpcs) == 1 && out.Vpcs[0].State == ec2types.VpcStateAvailable, nil
	})
}

// InternetGatewayHandler manages aws:ec2:InternetGateway, attached to a VPC.
//
// Inputs: vpcId, tags. Outputs: id.
type InternetGatewayHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer.
func (h *InternetGatewayHandler) ReplaceOnChange() []string { return []string{keyVpcID} }

func (h *InternetGatewayHandler) find(ctx context.Context, req *resource.CreateRequest) (ec2types.InternetGateway, bool, error) {
	if nameTag(req.Inputs) == "" {
		return ec2types.InternetGateway{}, false, nil
	}
	out, err := h.api.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{Filters: nameFilter(req.Inputs)})
	if err != nil {
		return ec2types.InternetGateway{}, false, fmt.Errorf("failed to describe internet gateways: %w", err)
	}
	for _, igw := range out.InternetGateways {
		if adoptable(req, aws.ToString(igw.InternetGatewayId)) {
			return igw, true, nil
		}
	}
	return ec2types.InternetGateway{}, false, nil
}

// Create implements resource.Handler.
func (h *InternetGatewayHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	vpcID, err := required(req.Inputs, keyVpcID)
	if err != nil {
		return nil, err
	}
	igw, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (ec2types.InternetGateway, bool, error) { return h.find(ctx, req) },
		func(ctx context.Context) (ec2types.InternetGateway, error) {
			out, err := h.api.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
				TagSpecifications: ec2TagSpec(ec2types.ResourceTypeInternetGateway, tagMap(req.Inputs)),
			})
			if err != nil {
				return ec2types.InternetGateway{}, err
			}
			return *out.InternetGateway, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create internet gateway: %w", err)
	}
	id := aws.ToString(igw.InternetGatewayId)

	for _, a := range igw.Attachments {
		if aws.ToString(a.VpcId) == vpcID {
			return &resource.Result{ID: id, Outputs: resource.Properties{resource.OutputID: id}}, nil
		}
	}
	err = h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
			InternetGatewayId: aws.String(id),
			VpcId:             aws.String(vpcID),
		})
		if hasCode(err, "Resource.AlreadyAssociated") {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach internet gateway %s to %s: %w", id, vpcID, err)
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{resource.OutputID: id}}, nil
}

// Update implements resource.Handler.
func (h *InternetGatewayHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if err := updateEC2Tags(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
		return nil, fmt.Errorf("failed to tag internet gateway %s: %w", req.ID, err)
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler. The gateway is detached first.
func (h *InternetGatewayHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	out, err := h.api.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{InternetGatewayIds: []string{req.ID}})
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to describe internet gateway %s: %w", req.ID, err)
	}
	for _, igw := range out.InternetGateways {
		for _, a := range igw.Attachments {
			err := h.remove(ctx, func(ctx context.Context) error {
				_, err := h.api.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
					InternetGatewayId: aws.String(req.ID),
					VpcId:             a.VpcId,
				})
				if hasCode(err, "Gateway.NotAttached") {
					return nil
				}
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to detach internet gateway %s: %w", req.ID, err)
			}
		}
	}
	err = h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{InternetGatewayId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete internet gateway %s: %w", req.ID, err)
	}
	return nil
}

// RouteTableHandler manages aws:ec2:RouteTable with a default route through
// an internet gateway.
//
// Inputs: vpcId, gatewayId, destinationCidrBlock (default 0.0.0.0/0), tags.
// Outputs: id.
type RouteTableHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer.
func (h *RouteTableHandler) ReplaceOnChange() []string { return []string{keyVpcID} }

func destination(p resource.Properties) string {
	if d := p.String("destinationCidrBlock"); d != "" {
		return d
	}
	return defaultRouteCIDR
}

// Create implements resource.Handler.
func (h *RouteTableHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	vpcID, err := required(req.Inputs, keyVpcID)
	if err != nil {
		return nil, err
	}
	gatewayID, err := required(req.Inputs, "gatewayId")
	if err != nil {
		return nil, err
	}

	id, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			if nameTag(req.Inputs) == "" {
				return "", false, nil
			}
			filters := append(nameFilter(req.Inputs), ec2types.Filter{Name: aws.String("vpc-id"), Values: []string{vpcID}})
			out, err := h.api.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{Filters: filters})
			if err != nil {
				return "", false, err
			}
			for _, rt := range out.RouteTables {
				if id := aws.ToString(rt.RouteTableId); adoptable(req, id) {
					return id, true, nil
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
				VpcId:             aws.String(vpcID),
				TagSpecifications: ec2TagSpec(ec2types.ResourceTypeRouteTable, tagMap(req.Inputs)),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.RouteTable.RouteTableId), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create route table: %w", err)
	}

	err = h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.CreateRoute(ctx, &ec2.CreateRouteInput{
			RouteTableId:         aws.String(id),
			DestinationCidrBlock: aws.String(destination(req.Inputs)),
			GatewayId:            aws.String(gatewayID),
		})
		if hasCode(err, "RouteAlreadyExists") {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create default route in %s: %w", id, err)
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{resource.OutputID: id}}, nil
}

// Update implements resource.Handler.
func (h *RouteTableHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if changed(req, "gatewayId", "destinationCidrBlock") {
		err := h.create(ctx, func(ctx context.Context) error {
			_, err := h.api.ReplaceRoute(ctx, &ec2.ReplaceRouteInput{
				RouteTableId:         aws.String(req.ID),
				DestinationCidrBlock: aws.String(destination(req.Inputs)),
				GatewayId:            aws.String(req.Inputs.String("gatewayId")),
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to replace default route in %s: %w", req.ID, err)
		}
	}
	if changed(req, keyTags) {
		if err := updateEC2Tags(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
			return nil, fmt.Errorf("failed to tag route table %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *RouteTableHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete route table %s: %w", req.ID, err)
	}
	return nil
}

// SubnetHandler manages aws:ec2:Subnet.
//
// Inputs: vpcId, cidrBlock, availabilityZone, mapPublicIpOnLaunch, tags.
// Outputs: id, availabilityZone, cidrBlock.
type SubnetHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer.
func (h *SubnetHandler) ReplaceOnChange() []string {
	return []string{keyVpcID, "cidrBlock", "availabilityZone"}
}

// Create implements resource.Handler.
func (h *SubnetHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	in := req.Inputs
	vpcID, err := required(in, keyVpcID)
	if err != nil {
		return nil, err
	}
	cidr, err := required(in, "cidrBlock")
	if err != nil {
		return nil, err
	}
	zone, err := required(in, "availabilityZone")
	if err != nil {
		return nil, err
	}

	id, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			out, err := h.api.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{Filters: []ec2types.Filter{
				{Name: aws.String("vpc-id"), Values: []string{vpcID}},
				{Name: aws.String("cidr-block"), Values: []string{cidr}},
			}})
			if err != nil {
				return "", false, err
			}
			for _, sn := range out.Subnets {
				if id := aws.ToString(sn.SubnetId); adoptable(req, id) {
					return id, true, nil
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.CreateSubnet(ctx, &ec2.CreateSubnetInput{
				VpcId:             aws.String(vpcID),
				CidrBlock:         aws.String(cidr),
				AvailabilityZone:  aws.String(zone),
				TagSpecifications: ec2TagSpec(ec2types.ResourceTypeSubnet, tagMap(in)),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Subnet.SubnetId), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet in %s: %w", zone, err)
	}
	if err := h.setPublicIP(ctx, id, in.Bool("mapPublicIpOnLaunch")); err != nil {
		return nil, err
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{
		resource.OutputID:  id,
		"availabilityZone": zone,
		"cidrBlock":        cidr,
	}}, nil
}

func (h *SubnetHandler) setPublicIP(ctx context.Context, id string, enabled bool) error {
	err := h.create(ctx, func(ctx context.Context) error {
		_, err := h.api.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(id),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(enabled)},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set public ip mapping of subnet %s: %w", id, err)
	}
	return nil
}

// Update implements resource.Handler.
func (h *SubnetHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	if changed(req, "mapPublicIpOnLaunch") {
		if err := h.setPublicIP(ctx, req.ID, req.Inputs.Bool("mapPublicIpOnLaunch")); err != nil {
			return nil, err
		}
	}
	if changed(req, keyTags) {
		if err := updateEC2Tags(ctx, h.base, h.api, req.ID, req.Inputs); err != nil {
			return nil, fmt.Errorf("failed to tag subnet %s: %w", req.ID, err)
		}
	}
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *SubnetHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete subnet %s: %w", req.ID, err)
	}
	return nil
}

// Read implements resource.Reader.
func (h *SubnetHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	out, err := h.api.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{SubnetIds: []string{id}})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe subnet %s: %w", id, err)
	}
	if len(out.Subnets) == 0 {
		return nil, false, nil
	}
	next := outputs.Clone()
	next["availabilityZone"] = aws.ToString(out.Subnets[0].AvailabilityZone)
	return next, true, nil
}

// WaitReady implements resource.Waiter.
func (h *SubnetHandler) WaitReady(ctx context.Context, id string, _ resource.Properties) error {
	return h.waitFor(ctx, "subnet "+id, func(ctx context.Context) (bool, error) {
		out, err := h.api.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{SubnetIds: []string{id}})
		if err != nil {
			return false, err
		}
		return len(out.Subnets) == 1 && out.Subnets[0].State == ec2types.SubnetStateAvailable, nil
	})
}

// RouteTableAssociationHandler manages aws:ec2:RouteTableAssociation.
//
// Inputs: routeTableId, subnetId. Outputs: id.
type RouteTableAssociationHandler struct {
	base
	api EC2API
}

// ReplaceOnChange implements resource.Replacer.
func (h *RouteTableAssociationHandler) ReplaceOnChange() []string {
	return []string{"routeTableId", "subnetId"}
}

// Create implements resource.Handler.
func (h *RouteTableAssociationHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	rtID, err := required(req.Inputs, "routeTableId")
	if err != nil {
		return nil, err
	}
	subnetID, err := required(req.Inputs, "subnetId")
	if err != nil {
		return nil, err
	}

	id, _, err := ensure(ctx, h.base,
		func(ctx context.Context) (string, bool, error) {
			out, err := h.api.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{RouteTableIds: []string{rtID}})
			if err != nil {
				return "", false, err
			}
			for _, rt := range out.RouteTables {
				for _, a := range rt.Associations {
					if aws.ToString(a.SubnetId) == subnetID {
						return aws.ToString(a.RouteTableAssociationId), true, nil
					}
				}
			}
			return "", false, nil
		},
		func(ctx context.Context) (string, error) {
			out, err := h.api.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
				RouteTableId: aws.String(rtID),
				SubnetId:     aws.String(subnetID),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.AssociationId), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to associate %s with %s: %w", subnetID, rtID, err)
	}
	return &resource.Result{ID: id, Outputs: resource.Properties{resource.OutputID: id}}, nil
}

// Update implements resource.Handler. Every input forces replacement.
func (h *RouteTableAssociationHandler) Update(_ context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	return &resource.Result{ID: req.ID, Outputs: req.OldOutputs}, nil
}

// Delete implements resource.Handler.
func (h *RouteTableAssociationHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	err := h.remove(ctx, func(ctx context.Context) error {
		_, err := h.api.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{AssociationId: aws.String(req.ID)})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to disassociate %s: %w", req.ID, err)
	}
	return nil
}
