package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entrhq/flock/pkg/config"
	"github.com/entrhq/flock/pkg/orchestrator"
	"github.com/entrhq/flock/pkg/provider"
	"github.com/entrhq/flock/pkg/types"
)

func newCreateCmd() *cobra.Command {
	var count int
	var namePrefix, groupID, osChoice string

	cmd := &cobra.Command{
		Use:   "create [batch.yaml]",
		Short: "Create a batch of profiles",
		Long:  "Create profiles in bulk from a YAML batch file, or from flags when no file is given. Progress streams to stdout as items finish.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildBatchRequest(args, count, namePrefix, groupID, osChoice)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := make(chan types.ProgressEvent, 64)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range events {
					printEvent(ev)
				}
			}()

			req.Events = events
			results, err := a.orch.CreateBatch(ctx, req)
			close(events)
			<-done
			if err != nil {
				return err
			}

			successful := 0
			for _, r := range results {
				if r.State == types.ItemCreated {
					successful++
				}
			}
			fmt.Printf("\nBatch complete: %d/%d profiles created\n", successful, len(results))
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Number of profiles to create (ignored when a batch file is given)")
	cmd.Flags().StringVar(&namePrefix, "prefix", "", "Item name prefix")
	cmd.Flags().StringVar(&groupID, "group", "", "Target group id")
	cmd.Flags().StringVar(&osChoice, "os", "", "Operating system fingerprint (win, mac, lin)")
	return cmd
}

func buildBatchRequest(args []string, count int, namePrefix, groupID, osChoice string) (orchestrator.BatchRequest, error) {
	if len(args) == 1 {
		batch, err := config.LoadBatchFile(args[0])
		if err != nil {
			return orchestrator.BatchRequest{}, err
		}

		req := orchestrator.BatchRequest{
			Count:           batch.Count,
			NamePrefix:      batch.NamePrefix,
			GroupID:         batch.GroupID,
			OS:              batch.OS,
			UserAgent:       batch.UserAgent,
			FingerprintSeed: batch.FingerprintSeed,
			Notes:           batch.Notes,
		}
		if batch.Proxy != nil {
			proxy, err := parseProxy(batch.Proxy.Server, batch.Proxy.Username, batch.Proxy.Password)
			if err != nil {
				return orchestrator.BatchRequest{}, fmt.Errorf("batch file %s: %w", args[0], err)
			}
			req.Proxy = proxy
		}
		return applyBatchDefaults(req)
	}

	if count <= 0 {
		return orchestrator.BatchRequest{}, fmt.Errorf("either a batch file or a positive --count is required")
	}
	return applyBatchDefaults(orchestrator.BatchRequest{
		Count:      count,
		NamePrefix: namePrefix,
		GroupID:    groupID,
		OS:         osChoice,
	})
}

// parseProxy turns a "scheme://host:port" proxy address into the structured
// assignment the provider expects. The scheme is optional and defaults to
// http; socks5 is the only other mode the service accepts.
func parseProxy(server, username, password string) (*provider.Proxy, error) {
	mode := "http"
	addr := server
	if scheme, rest, found := strings.Cut(server, "://"); found {
		mode = scheme
		addr = rest
	}
	if mode != "http" && mode != "socks5" {
		return nil, fmt.Errorf("unsupported proxy mode %q in %q", mode, server)
	}

	host, portText, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("proxy server %q must be host:port: %w", server, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("proxy server %q has invalid port %q", server, portText)
	}

	return &provider.Proxy{
		Mode:     mode,
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
	}, nil
}

// applyBatchDefaults fills unset request fields from the batch config
// section.
func applyBatchDefaults(req orchestrator.BatchRequest) (orchestrator.BatchRequest, error) {
	batch := config.GetBatch()
	if batch == nil {
		return req, nil
	}

	if req.NamePrefix == "" {
		req.NamePrefix = batch.GetNamePrefix()
	}
	if req.OS == "" {
		req.OS = batch.GetDefaultOS()
	}
	if server, username, password := batch.GetProxy(); req.Proxy == nil && server != "" {
		proxy, err := parseProxy(server, username, password)
		if err != nil {
			return orchestrator.BatchRequest{}, fmt.Errorf("configured default proxy: %w", err)
		}
		req.Proxy = proxy
	}
	return req, nil
}

func printEvent(ev types.ProgressEvent) {
	prefix := ""
	switch ev.Message.Type {
	case types.MessageSuccess:
		prefix = "✓ "
	case types.MessageError:
		prefix = "✗ "
	case types.MessageWarning:
		prefix = "! "
	}

	if ev.Total > 0 && ev.Current > 0 {
		fmt.Printf("[%d/%d] %s%s\n", ev.Current, ev.Total, prefix, ev.Message.Text)
		return
	}
	fmt.Printf("%s%s\n", prefix, ev.Message.Text)
}
