package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/noirzk/pkg/noirzk"
)

var setupRecursive bool

// setupSrsCmd 为电路准备SRS
var setupSrsCmd = &cobra.Command{
	Use:   "setup-srs <bytecode-file>",
	Short: "为电路准备SRS（已缓存时直接复用）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytecode, err := readBytecode(args[0])
		if err != nil {
			return err
		}
		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			size, err := runWithSpinner(ctx, "准备SRS", b.SetupSrs(bytecode, srsPathFlag(), setupRecursive))
			if err != nil {
				return err
			}
			pterm.Info.Printfln("电路规模: %d", size)
			return nil
		})
	},
}

// setupSrsSizeCmd 准备指定规模的SRS
var setupSrsSizeCmd = &cobra.Command{
	Use:   "setup-srs-size <size>",
	Short: "准备覆盖指定电路规模的SRS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("无效的规模 %q: %w", args[0], err)
		}
		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			_, err := runWithSpinner(ctx, fmt.Sprintf("准备规模 %d 的SRS", size), b.SetupSrsWithSize(uint32(size), srsPathFlag()))
			return err
		})
	},
}

func init() {
	setupSrsCmd.Flags().BoolVar(&setupRecursive, "recursive", false, "额外预留递归验证所需的规模")
}
