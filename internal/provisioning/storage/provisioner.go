package storage

import (
	"errors"
	"fmt"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/output"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/naming"
)

const phase = "storage"

// Node names of the volume.
const (
	NodeFileSystem  = "filesystem"
	NodeAccessPoint = "access-point"
)

// ErrNoNetwork is returned when the storage phase runs before the network
// and firewall are declared.
var ErrNoNetwork = errors.New("storage: network and firewall must be declared first")

// MountTargetNode returns the node name of the mount target in zone.
func MountTargetNode(zone string) string {
	return "mount-target-" + zone
}

// Provisioner declares the persistent volume.
type Provisioner struct{}

// NewProvisioner creates a new storage provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	net, fw := ctx.State.Network, ctx.State.Firewall
	if net == nil || fw == nil {
		return ErrNoNetwork
	}
	cfg := ctx.Config
	prefix := cfg.Prefix()
	token := naming.FileSystemToken(prefix)
	ctx.Observer.Printf("[%s] Declaring volume %s across %d zones...", phase, token, len(net.Zones))

	declare := func(spec resource.Spec) (*resource.Ref, error) {
		return ctx.Declare(provisioning.ComponentStorage, spec)
	}

	fs, err := declare(resource.Spec{
		Name: NodeFileSystem,
		Kind: resource.KindFileSystem,
		Inputs: resource.Properties{
			"creationToken":  token,
			"encrypted":      true,
			"transitionToIA": cfg.Storage.TransitionToIA,
			"tags":           ctx.Tags(provisioning.ComponentStorage, token),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to declare file system: %w", err)
	}

	vol := &provisioning.Volume{
		FileSystemID:      fs.ID(),
		TransitEncryption: true,
		MountTargets:      make(map[string]*resource.Ref, len(net.Zones)),
	}
	targets := make([]string, 0, len(net.Zones))
	for _, zone := range net.Zones {
		mt, err := declare(resource.Spec{
			Name: MountTargetNode(zone),
			Kind: resource.KindMountTarget,
			Inputs: resource.Properties{
				"fileSystemId":     fs.ID(),
				"subnetId":         net.SubnetIDByZone[zone],
				"securityGroupIds": []output.Output[string]{net.SecurityGroupID},
			},
			DependsOn: []string{fw.NFSIngress.Name()},
		})
		if err != nil {
			return fmt.Errorf("failed to declare mount target in %s: %w", zone, err)
		}
		vol.MountTargets[zone] = mt
		targets = append(targets, mt.Name())
	}

	apName := naming.AccessPoint(prefix)
	ap, err := declare(resource.Spec{
		Name: NodeAccessPoint,
		Kind: resource.KindAccessPoint,
		Inputs: resource.Properties{
			"fileSystemId":  fs.ID(),
			"posixUid":      cfg.Storage.PosixUID,
			"posixGid":      cfg.Storage.PosixGID,
			"rootDirectory": config.DataDir,
			"permissions":   "0755",
			"tags":          ctx.Tags(provisioning.ComponentStorage, apName),
		},
		DependsOn: targets,
	})
	if err != nil {
		return fmt.Errorf("failed to declare access point: %w", err)
	}
	vol.AccessPoint = ap
	vol.AccessPointID = ap.ID()

	ctx.State.Volume = vol
	return nil
}
