package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"workstation-engine/internal/config"
	"workstation-engine/internal/process"
	"workstation-engine/internal/types"
)

var describeWorkstation string

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "输出工作站可运行工艺的输入、输出和复杂度",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, newLogger())
		if err != nil {
			return err
		}
		defer a.close()

		out := make(map[types.WorkstationID][]process.Description)
		for _, ws := range a.stations.All() {
			if describeWorkstation != "" && string(ws.ID) != describeWorkstation {
				continue
			}
			procs, err := a.authority.Processes(ws.ID)
			if err != nil {
				return err
			}
			for _, p := range procs {
				out[ws.ID] = append(out[ws.ID], p.Describe())
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeWorkstation, "workstation", "w", "", "只输出指定工作站")
}
