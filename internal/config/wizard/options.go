package wizard

import "github.com/charmbracelet/huh"

// RegionOption represents an AWS region.
type RegionOption struct {
	Value       string
	Description string
}

// Regions offered by the wizard. Any region can be set in the file directly.
var Regions = []RegionOption{
	{Value: "us-east-1", Description: "N. Virginia"},
	{Value: "us-east-2", Description: "Ohio"},
	{Value: "us-west-2", Description: "Oregon"},
	{Value: "eu-west-1", Description: "Ireland"},
	{Value: "eu-central-1", Description: "Frankfurt"},
	{Value: "ap-southeast-1", Description: "Singapore"},
}

// SizeOption is a Fargate CPU/memory pairing.
type SizeOption struct {
	Label  string
	CPU    int
	Memory int
}

// Sizes offered by the wizard.
var Sizes = []SizeOption{
	{Label: "small", CPU: 256, Memory: 512},
	{Label: "medium", CPU: 512, Memory: 1024},
	{Label: "large", CPU: 1024, Memory: 2048},
	{Label: "xlarge", CPU: 2048, Memory: 4096},
}

// RegionsToOptions converts regions to huh select options.
func RegionsToOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(Regions))
	for i, r := range Regions {
		opts[i] = huh.NewOption(r.Value+" - "+r.Description, r.Value)
	}
	return opts
}

// SizesToOptions converts sizes to huh select options.
func SizesToOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(Sizes))
	for i, s := range Sizes {
		opts[i] = huh.NewOption(s.Label, s.Label)
	}
	return opts
}

// sizeByLabel returns the size with the given label, defaulting to the first.
func sizeByLabel(label string) SizeOption {
	for _, s := range Sizes {
		if s.Label == label {
			return s
		}
	}
	return Sizes[0]
}
