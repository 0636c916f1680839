// Command kadnode runs a Kademlia node on a UDP socket.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Rendaw/kademlia/event"
	"github.com/Rendaw/kademlia/network/udpendpoint"
	"github.com/Rendaw/kademlia/node"
	"github.com/Rendaw/kademlia/protocol"
	"github.com/Rendaw/kademlia/store"
)

var logger = logging.Logger("kad/node")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var seedFlag = &cli.StringFlag{
	Name:    "seed",
	Usage:   "hex encoded identity seed, a fresh identity is generated if empty",
	EnvVars: []string{"KADNODE_SEED"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kadnode",
		Usage: "run a Kademlia node that admits peers by challenge",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "listen for requests and join the network",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Value:   "/ip4/0.0.0.0/udp/4000",
						Usage:   "UDP multiaddr to listen on",
						EnvVars: []string{"KADNODE_LISTEN"},
					},
					&cli.StringSliceFlag{
						Name:    "bootstrap",
						Usage:   "multiaddr of a node to join the network through, may be repeated",
						EnvVars: []string{"KADNODE_BOOTSTRAP"},
					},
					&cli.IntFlag{
						Name:    "k",
						Value:   20,
						Usage:   "bucket size",
						EnvVars: []string{"KADNODE_K"},
					},
					&cli.DurationFlag{
						Name:    "timeout",
						Value:   5 * time.Second,
						Usage:   "request timeout",
						EnvVars: []string{"KADNODE_TIMEOUT"},
					},
					&cli.DurationFlag{
						Name:    "refresh",
						Value:   time.Hour,
						Usage:   "how long a bucket may go untouched before it is refreshed",
						EnvVars: []string{"KADNODE_REFRESH"},
					},
					seedFlag,
					&cli.StringFlag{
						Name:    "log-level",
						Value:   "info",
						Usage:   "one of debug, info, warn, error",
						EnvVars: []string{"KADNODE_LOG_LEVEL"},
					},
				},
				Action: runNode,
			},
			{
				Name:   "id",
				Usage:  "print the node id derived from a seed",
				Flags:  []cli.Flag{seedFlag},
				Action: printID,
			},
			{
				Name:   "keygen",
				Usage:  "generate a new identity seed",
				Action: keygen,
			},
		},
	}
}

// loadIdentity restores the identity from a hex seed, or creates one if seed is empty.
func loadIdentity(seed string) (*node.Own, error) {
	if seed == "" {
		return node.NewOwn(nil)
	}
	b, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return node.RestoreOwn(b, nil)
}

func parseAddrs(ss []string) ([]ma.Multiaddr, error) {
	addrs := make([]ma.Multiaddr, 0, len(ss))
	for _, s := range ss {
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("parse bootstrap address %q: %w", s, err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func printID(c *cli.Context) error {
	if c.String("seed") == "" {
		return errors.New("--seed is required")
	}
	own, err := loadIdentity(c.String("seed"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, own.ID().HexString())
	return nil
}

func keygen(c *cli.Context) error {
	own, err := node.NewOwn(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "seed: %x\nid:   %s\n", own.Seed(), own.ID().HexString())
	return nil
}

func runNode(c *cli.Context) error {
	lvl, err := logging.LevelFromString(c.String("log-level"))
	if err != nil {
		return err
	}
	logging.SetAllLoggers(lvl)

	own, err := loadIdentity(c.String("seed"))
	if err != nil {
		return err
	}
	listen, err := ma.NewMultiaddr(c.String("listen"))
	if err != nil {
		return fmt.Errorf("parse listen address: %w", err)
	}
	bootstrap, err := parseAddrs(c.StringSlice("bootstrap"))
	if err != nil {
		return err
	}

	clk := clock.New()
	sched := event.NewSimpleScheduler(clk)
	ep, err := udpendpoint.New(listen, sched)
	if err != nil {
		return err
	}
	defer ep.Close()

	cfg := protocol.DefaultConfig()
	cfg.BucketSize = c.Int("k")
	cfg.RequestTimeout = c.Duration("timeout")
	cfg.StaleAfter = c.Duration("refresh")
	cfg.Clock = clk
	engine, err := protocol.New(own, ep, store.NewMemory(), cfg)
	if err != nil {
		return err
	}
	logger.Infow("node started", "id", own.ID().HexString(), "addr", ep.LocalAddr())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.EnqueueAction(ctx, event.BasicAction(func(ctx context.Context) {
		engine.Bootstrap(ctx, bootstrap, func(ctx context.Context, discovered int) {
			logger.Infow("bootstrap complete", "discovered", discovered, "known", engine.RoutingTable().Size())
		})
		scheduleRefresh(ctx, sched, engine, cfg.StaleAfter)
	}))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ep.Run(ctx)
	})
	g.Go(func() error {
		err := event.Run(ctx, sched)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err = g.Wait()
	logger.Infow("node stopped", "known", engine.RoutingTable().Size())
	return err
}

// scheduleRefresh refreshes the stale buckets every interval.
func scheduleRefresh(ctx context.Context, sched event.Scheduler, engine *protocol.Engine, interval time.Duration) {
	event.ScheduleActionIn(ctx, sched, interval, event.BasicAction(func(ctx context.Context) {
		engine.Refresh(ctx, func(ctx context.Context, discovered int) {
			logger.Debugw("refresh complete", "discovered", discovered, "known", engine.RoutingTable().Size())
		})
		scheduleRefresh(ctx, sched, engine, interval)
	}))
}
