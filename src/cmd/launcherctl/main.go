package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcclient "github.com/enderiumcraft/rbclauncher/src/internal/grpc"
)

const defaultAddress = "127.0.0.1:50515"

var (
	address string
	timeout time.Duration
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "launcherctl",
		Short:         "Control a running RBC Launcher",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&address, "address", defaultAddress, "Control service address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show launcher, update and game status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd.Context(), func(ctx context.Context, c *grpcclient.Client) (*structpb.Struct, error) {
					return c.Status(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Check for launcher and modpack updates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd.Context(), func(ctx context.Context, c *grpcclient.Client) (*structpb.Struct, error) {
					return c.CheckForUpdates(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "launch <server>",
			Short: "Launch the game and join a configured server",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd.Context(), func(ctx context.Context, c *grpcclient.Client) (*structpb.Struct, error) {
					return c.Launch(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Stream update progress until the update finishes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := grpcclient.Dial(address)
				if err != nil {
					return err
				}
				defer c.Close()

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()

				return c.WatchUpdates(ctx, func(s *structpb.Struct) {
					fields := s.AsMap()
					fmt.Printf("[%v] %5.1f%% %v\n", fields["stage"], fields["progress"], fields["message"])
					if e, ok := fields["error"].(string); ok && e != "" {
						fmt.Printf("error: %s\n", e)
					}
				})
			},
		},
	)
	return root
}

func call(parent context.Context, fn func(context.Context, *grpcclient.Client) (*structpb.Struct, error)) error {
	c, err := grpcclient.Dial(address)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	resp, err := fn(ctx, c)
	if err != nil {
		return err
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
