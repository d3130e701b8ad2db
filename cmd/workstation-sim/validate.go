package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"workstation-engine/internal/config"
	"workstation-engine/internal/inventory"
	"workstation-engine/internal/process"
	"workstation-engine/internal/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir...]",
	Short: "编译并校验工艺模板",
	Long:  "编译模板目录中的全部工艺模板并输出结构错误。未指定目录时使用配置中的 template_dirs。",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs := args
		var known func(string) bool
		if cfg, err := config.LoadConfig(cfgFile); err == nil {
			known = cfg.KnownFluid()
			if len(dirs) == 0 {
				dirs = cfg.TemplateDirs
			}
		}
		if len(dirs) == 0 {
			return errors.New("no template directory given")
		}

		// 校验只关心结构，使用空容器即可
		inv := inventory.NewMemory(0, 0)
		factory := process.NewFactory(process.Env{KnownFluid: known, Items: inv, Fluids: inv})
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "part kinds: %s\n", strings.Join(factory.Kinds(), ", "))

		templates, loadErr := registry.NewDirSource(dirs...).All()
		if loadErr != nil {
			fmt.Fprintf(out, "FAIL %v\n", loadErr)
		}
		invalid := 0
		for _, t := range templates {
			if _, err := process.Compile(t, factory); err != nil {
				invalid++
				fmt.Fprintf(out, "FAIL %s (%s): %v\n", t.ID, t.Type, err)
				continue
			}
			fmt.Fprintf(out, "ok   %s (%s)\n", t.ID, t.Type)
		}
		if invalid > 0 {
			return errors.Join(loadErr, fmt.Errorf("%d of %d templates are invalid", invalid, len(templates)))
		}
		return loadErr
	},
}
