// Command streamplan is the operator CLI for a streamworker's control
// service: submit a YAML plan document, inject a data or
// stop barrier, and drop a fragment. Grounded on cli/cmd's cobra root
// command and flag conventions.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"sigs.k8s.io/yaml"

	"github.com/streamdb/flowcore/pkg/wire/controlpb"
)

var controlAddr string

func main() {
	root := &cobra.Command{
		Use:   "streamplan",
		Short: "streamplan drives a streamworker's control service",
	}
	root.PersistentFlags().StringVar(&controlAddr, "control-addr", "127.0.0.1:7071", "streamworker control service address")

	root.AddCommand(newSubmitPlanCmd())
	root.AddCommand(newBarrierCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newDropFragmentCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(ctx context.Context) (controlpb.ControlClient, *grpc.ClientConn, error) {
	conn, err := grpc.DialContext(ctx, controlAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(controlpb.Codec{})),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, nil, err
	}
	return controlpb.NewControlClient(conn), conn, nil
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func newSubmitPlanCmd() *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "submit-plan",
		Short: "submit a YAML plan document",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(planPath)
			if err != nil {
				return fmt.Errorf("reading plan file: %w", err)
			}
			var plan controlpb.Plan
			if err := yaml.Unmarshal(raw, &plan); err != nil {
				return fmt.Errorf("parsing plan file: %w", err)
			}

			ctx, cancel := withTimeout()
			defer cancel()
			cli, conn, err := dial(ctx)
			if err != nil {
				return fmt.Errorf("dialing %s: %w", controlAddr, err)
			}
			defer conn.Close()

			if _, err := cli.SubmitPlan(ctx, &controlpb.SubmitPlanRequest{Plan: plan}); err != nil {
				return fmt.Errorf("submit plan: %w", err)
			}
			fmt.Printf("plan submitted: %d fragment(s)\n", len(plan.Fragments))
			return nil
		},
	}
	cmd.Flags().StringVar(&planPath, "file", "", "path to the plan YAML document")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newBarrierCmd() *cobra.Command {
	var epoch uint64
	cmd := &cobra.Command{
		Use:   "barrier",
		Short: "inject a data barrier for an epoch",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout()
			defer cancel()
			cli, conn, err := dial(ctx)
			if err != nil {
				return fmt.Errorf("dialing %s: %w", controlAddr, err)
			}
			defer conn.Close()

			if _, err := cli.SendBarrier(ctx, &controlpb.SendBarrierRequest{Epoch: epoch}); err != nil {
				return fmt.Errorf("send barrier: %w", err)
			}
			fmt.Printf("barrier sent for epoch %d\n", epoch)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&epoch, "epoch", 0, "epoch number to inject")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "inject a stop barrier, tearing down every fragment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout()
			defer cancel()
			cli, conn, err := dial(ctx)
			if err != nil {
				return fmt.Errorf("dialing %s: %w", controlAddr, err)
			}
			defer conn.Close()

			if _, err := cli.SendStopBarrier(ctx, &controlpb.Empty{}); err != nil {
				return fmt.Errorf("send stop barrier: %w", err)
			}
			fmt.Println("stop barrier sent")
			return nil
		},
	}
}

func newDropFragmentCmd() *cobra.Command {
	var id uint32
	cmd := &cobra.Command{
		Use:   "drop-fragment",
		Short: "drop one fragment's channels and actor state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout()
			defer cancel()
			cli, conn, err := dial(ctx)
			if err != nil {
				return fmt.Errorf("dialing %s: %w", controlAddr, err)
			}
			defer conn.Close()

			if _, err := cli.DropFragment(ctx, &controlpb.DropFragmentRequest{ID: id}); err != nil {
				return fmt.Errorf("drop fragment: %w", err)
			}
			fmt.Printf("fragment %d dropped\n", id)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&id, "id", 0, "fragment id to drop")
	cmd.MarkFlagRequired("id")
	return cmd
}
