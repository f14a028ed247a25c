package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"price-stream/src/grpc_control"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
)

func newCtlCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	verbs := make([]string, 0, len(grpc_control.Methods))
	for verb := range grpc_control.Methods {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)

	cmd := &cobra.Command{
		Use:       "ctl <command>",
		Short:     "Drive a running instance over gRPC",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: verbs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := grpc_control.NewClient(addr)
			if err != nil {
				return err
			}
			defer client.Close()

			out, err := client.Call(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s failed: %w", args[0], err)
			}

			data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50061", "control server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "call timeout")
	return cmd
}
