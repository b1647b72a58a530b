package main

import (
	"fmt"

	"github.com/haasonsaas/nexus-bridge/internal/config"
	"github.com/spf13/cobra"
)

func buildValidateConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate a bridge configuration file without starting the server",
		Example: `  bridged validate-config --config bridge.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadBridgeConfig(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config valid: %d provider(s), %d route(s)\n", len(cfg.Providers), len(cfg.Routes))
			for _, r := range cfg.Routes {
				status := "enabled"
				if !r.Enabled {
					status = "disabled"
				}
				fmt.Fprintf(out, "  route %-20s %-10s proxyPath=%s inbound=%s outbound=%s/%s\n",
					r.ID, status, r.ProxyPath, r.InboundAdapter, r.OutboundType, r.OutboundID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bridge.yaml", "Path to YAML configuration file")
	return cmd
}
