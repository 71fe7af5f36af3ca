package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/feng-zhe/zhechord/internal/bootstrap"
	"github.com/feng-zhe/zhechord/internal/ring"
)

const clusterLabel = "zhechord.cluster"

// clusterctl launches and tears down a local test ring: one bridge network
// plus N node containers named after their identifiers (cr_<id>), so the
// engine's container naming convention resolves each peer without any
// address exchange. The first container founds the ring; the rest join
// through it.
//
// Usage:
//
//	clusterctl -n 4 up
//	clusterctl ps
//	clusterctl down
func main() {
	nodes := flag.Int("n", 4, "number of node containers to launch")
	bits := flag.Int("bits", 5, "ring identifier width in bits")
	image := flag.String("image", "zhechord/node:latest", "node container image")
	netName := flag.String("network", "zhechord-net", "bridge network name")
	clusterName := flag.String("cluster", "zhechord", "cluster label value, lets several rings coexist")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Println("Usage: clusterctl [flags] up|down|ps")
		os.Exit(2)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		fmt.Printf("failed to create docker client: %v\n", err)
		os.Exit(1)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd {
	case "up":
		err = up(ctx, cli, *nodes, *bits, *image, *netName, *clusterName)
	case "down":
		err = down(ctx, cli, *netName, *clusterName)
	case "ps":
		err = ps(ctx, cli, *clusterName)
	default:
		fmt.Printf("unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Printf("%s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

// up creates the bridge network and launches n node containers. Identifiers
// are derived by hashing each container's ordinal name into the ring, the
// same reduction the application layer uses for keys, so the set is
// deterministic across runs.
func up(ctx context.Context, cli *client.Client, n, bits int, image, netName, cluster string) error {
	space, err := ring.NewSpace(bits, 2)
	if err != nil {
		return err
	}

	netResp, err := cli.NetworkCreate(ctx, netName, network.CreateOptions{
		Driver: "bridge",
		Labels: map[string]string{clusterLabel: cluster},
	})
	if err != nil {
		return fmt.Errorf("create network %q: %w", netName, err)
	}
	fmt.Printf("created network %s (%s)\n", netName, shortID(netResp.ID))

	var founderID string
	for i := 0; i < n; i++ {
		id := space.Hex(space.HashName(fmt.Sprintf("node-%d", i)))
		name := bootstrap.ContainerPrefix + id

		cmd := []string{id}
		if founderID == "" {
			founderID = id
		} else {
			cmd = append(cmd, founderID)
		}

		created, err := cli.ContainerCreate(ctx,
			&container.Config{
				Image:  image,
				Cmd:    cmd,
				Labels: map[string]string{clusterLabel: cluster},
			},
			&container.HostConfig{},
			&network.NetworkingConfig{
				EndpointsConfig: map[string]*network.EndpointSettings{
					netName: {},
				},
			},
			nil, name)
		if err != nil {
			return fmt.Errorf("create container %s: %w", name, err)
		}
		if err := cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
			return fmt.Errorf("start container %s: %w", name, err)
		}
		role := "joins via " + founderID
		if id == founderID {
			role = "founder"
		}
		fmt.Printf("started %s (%s, %s)\n", name, shortID(created.ID), role)
	}
	return nil
}

// down removes every container carrying the cluster label, then the network.
func down(ctx context.Context, cli *client.Client, netName, cluster string) error {
	containers, err := listCluster(ctx, cli, cluster)
	if err != nil {
		return err
	}
	for _, c := range containers {
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			return fmt.Errorf("remove container %s: %w", name(c), err)
		}
		fmt.Printf("removed %s\n", name(c))
	}
	if err := cli.NetworkRemove(ctx, netName); err != nil {
		return fmt.Errorf("remove network %q: %w", netName, err)
	}
	fmt.Printf("removed network %s\n", netName)
	return nil
}

// ps lists the cluster's containers and their states.
func ps(ctx context.Context, cli *client.Client, cluster string) error {
	containers, err := listCluster(ctx, cli, cluster)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		fmt.Println("(no containers)")
		return nil
	}
	for _, c := range containers {
		fmt.Printf("%s  %s  %s\n", name(c), c.State, c.Status)
	}
	return nil
}

func listCluster(ctx context.Context, cli *client.Client, cluster string) ([]container.Summary, error) {
	f := filters.NewArgs(filters.Arg("label", clusterLabel+"="+cluster))
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return containers, nil
}

func name(c container.Summary) string {
	if len(c.Names) > 0 {
		return c.Names[0]
	}
	return shortID(c.ID)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
