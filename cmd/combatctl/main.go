// Package main provides a command-line client for the combat daemon.
//
// Usage:
//
//	combatctl [-addr host:port] start <scenario.yaml>
//	combatctl [-addr host:port] status|state|result|report|force-end|watch <mission-id>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/fieldops/internal/bootstrap"
	"github.com/cory-johannsen/fieldops/internal/combatserver"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50061", "combat daemon gRPC address")
	timeout := flag.Duration("timeout", 10*time.Second, "per-call timeout (watch is unbounded)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [flags] start <scenario.yaml> | status|state|result|report|force-end|watch <mission-id>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, arg := flag.Arg(0), flag.Arg(1)

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("connecting to %s: %v", *addr, err)
	}
	defer conn.Close()
	client := combatserver.NewClient(conn)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd == "watch" {
		err := client.Watch(ctx, arg, func(m combatserver.WatchMessage) error {
			if m.Kind == combatserver.WatchResult {
				return printJSON(m.Result)
			}
			fmt.Printf("round %d  elapsed %s  status %s\n", m.Session.Round, m.Session.Elapsed, m.Session.Status)
			return nil
		})
		if err != nil {
			log.Fatalf("watch %s: %v", arg, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := run(ctx, client, cmd, arg); err != nil {
		log.Fatalf("%s %s: %v", cmd, arg, err)
	}
}

func run(ctx context.Context, client *combatserver.Client, cmd, arg string) error {
	switch cmd {
	case "start":
		sc, err := bootstrap.LoadScenario(arg)
		if err != nil {
			return err
		}
		started, err := client.StartSession(ctx, combatserver.StartRequest{
			MissionID:    sc.MissionID,
			Participants: sc.Participants,
			Enemies:      sc.Enemies,
			Context:      sc.Context,
		})
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"mission_id": sc.MissionID, "started": started})
	case "status":
		st, err := client.GetStatus(ctx, arg)
		if err != nil {
			return err
		}
		return printJSON(st)
	case "state":
		s, err := client.GetLiveState(ctx, arg)
		if err != nil {
			return err
		}
		return printJSON(s)
	case "result":
		r, err := client.GetResult(ctx, arg)
		if err != nil {
			return err
		}
		return printJSON(r)
	case "report":
		r, err := client.GetReport(ctx, arg)
		if err != nil {
			return err
		}
		return printJSON(r)
	case "force-end":
		return client.ForceEnd(ctx, arg)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
