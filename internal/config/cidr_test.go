package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIDRSubnet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prefix  string
		newbits int
		netnum  int
		want    string
		wantErr bool
	}{
		{name: "first /24 of /16", prefix: "10.0.0.0/16", newbits: 8, netnum: 0, want: "10.0.0.0/24"},
		{name: "second /24 of /16", prefix: "10.0.0.0/16", newbits: 8, netnum: 1, want: "10.0.1.0/24"},
		{name: "host bits masked", prefix: "10.0.5.7/16", newbits: 8, netnum: 2, want: "10.0.2.0/24"},
		{name: "/28 of /20", prefix: "172.16.0.0/20", newbits: 8, netnum: 255, want: "172.16.15.240/28"},
		{name: "netnum too large", prefix: "10.0.0.0/16", newbits: 1, netnum: 2, wantErr: true},
		{name: "too many bits", prefix: "10.0.0.0/28", newbits: 8, netnum: 0, wantErr: true},
		{name: "ipv6", prefix: "2001:db8::/32", newbits: 8, netnum: 0, wantErr: true},
		{name: "garbage", prefix: "nope", newbits: 8, netnum: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CIDRSubnet(tt.prefix, tt.newbits, tt.netnum)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
