package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/noirzk/internal/core/zkproof"
	"github.com/weisyn/noirzk/pkg/noirzk"
)

var compileOutput string

// compileCmd 将JSON程序编码为字节码
var compileCmd = &cobra.Command{
	Use:   "compile <program.json>",
	Short: "将JSON程序编码为电路字节码",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("读取程序失败: %w", err)
		}
		var program zkproof.Program
		if err := json.Unmarshal(data, &program); err != nil {
			return fmt.Errorf("解析程序失败: %w", err)
		}
		if program.Version == 0 {
			program.Version = 1
		}
		bytecode, err := zkproof.EncodeBytecode(&program)
		if err != nil {
			return err
		}
		return writeOutput(compileOutput, []byte(bytecode+"\n"))
	},
}

// infoCmd 显示电路概要
var infoCmd = &cobra.Command{
	Use:   "info <bytecode-file>",
	Short: "显示电路摘要、约束数量与所需输入",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytecode, err := readBytecode(args[0])
		if err != nil {
			return err
		}
		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			info, err := b.Manager().CircuitInfo(bytecode)
			if err != nil {
				return err
			}
			return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
				{"字段", "值"},
				{"摘要", hex.EncodeToString(info.Digest[:])},
				{"约束数量", fmt.Sprint(info.Constraints)},
				{"公开输入", fmt.Sprint(info.PublicInputs)},
				{"电路规模", fmt.Sprint(info.CircuitSize)},
				{"必需见证", fmt.Sprint(info.RequiredInput)},
			}).Render()
		})
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "字节码输出文件（默认标准输出）")
}
