// Package bootstrap resolves the set of peer addresses a node should try
// to join through: a static configured list, or discovery against an AWS
// Route53 hosted zone recordset for deployments where nodes find each
// other through DNS instead of operator-supplied identifiers.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	cfgpkg "github.com/feng-zhe/zhechord/internal/config"
)

// Discoverer resolves the current set of live peer addresses. An empty
// result with a nil error means "found a new ring": no peers known, so
// CreateNewDHT runs instead of Join.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// NewDiscoverer builds the Discoverer cfg.Bootstrap.Mode selects.
func NewDiscoverer(cfg cfgpkg.BootstrapConfig) (Discoverer, error) {
	switch cfg.Mode {
	case "static", "":
		return StaticDiscoverer{Peers: cfg.Peers}, nil
	case "route53":
		return newRoute53Discoverer(cfg.Route53)
	default:
		return nil, fmt.Errorf("bootstrap: unsupported mode %q", cfg.Mode)
	}
}

// StaticDiscoverer returns a fixed, operator-configured peer list.
type StaticDiscoverer struct {
	Peers []string
}

func (d StaticDiscoverer) Discover(context.Context) ([]string, error) {
	return d.Peers, nil
}

// Route53Discoverer resolves a hosted-zone recordset to the current set of
// live node addresses, letting a ring of containers find each other
// without an operator hand-copying addresses.
type Route53Discoverer struct {
	client       *route53.Client
	hostedZoneID string
	recordName   string
}

func newRoute53Discoverer(cfg cfgpkg.Route53Config) (*Route53Discoverer, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return &Route53Discoverer{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: cfg.HostedZoneID,
		recordName:   cfg.RecordName,
	}, nil
}

// Discover lists the resource records for recordName in hostedZoneID and
// returns every value as a dialable address.
func (d *Route53Discoverer) Discover(ctx context.Context) ([]string, error) {
	out, err := d.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(d.hostedZoneID),
		StartRecordName: aws.String(d.recordName),
		StartRecordType: types.RRTypeA,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: route53 list_resource_record_sets: %w", err)
	}

	var peers []string
	for _, rs := range out.ResourceRecordSets {
		if aws.ToString(rs.Name) != d.recordName && aws.ToString(rs.Name) != d.recordName+"." {
			continue
		}
		for _, rr := range rs.ResourceRecords {
			if v := aws.ToString(rr.Value); v != "" {
				peers = append(peers, v)
			}
		}
	}
	return peers, nil
}
