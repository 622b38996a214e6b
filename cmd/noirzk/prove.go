package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/noirzk/pkg/noirzk"
)

var (
	outputPath    string // 输出文件
	disableZk     bool   // 关闭零知识
	lowMemoryMode bool   // 低内存模式
	recursive     bool   // 递归预留
)

// vkCmd 生成验证密钥
var vkCmd = &cobra.Command{
	Use:   "vk <bytecode-file>",
	Short: "生成电路的验证密钥",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytecode, err := readBytecode(args[0])
		if err != nil {
			return err
		}
		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			if _, err := b.SetupSrs(bytecode, srsPathFlag(), recursive).Await(ctx); err != nil {
				return err
			}
			vk, err := runWithSpinner(ctx, "生成验证密钥", b.GetVerificationKey(bytecode, disableZk, lowMemoryMode))
			if err != nil {
				return err
			}
			return writeOutput(outputPath, vk)
		})
	},
}

// witnessCmd 将字符串值转换为序列化见证
var witnessCmd = &cobra.Command{
	Use:   "witness <value>...",
	Short: "将有序的十进制/十六进制值转换为序列化见证（第 i 个值对应见证 i+1）",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			data, err := b.WitnessFromStrings(args).Await(ctx)
			if err != nil {
				return err
			}
			return writeOutput(outputPath, data)
		})
	},
}

// proveCmd 生成证明
var proveCmd = &cobra.Command{
	Use:   "prove <bytecode-file> <witness-file> <vk-file>",
	Short: "生成证明",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytecode, err := readBytecode(args[0])
		if err != nil {
			return err
		}
		witness, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("读取见证失败: %w", err)
		}
		vk, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("读取验证密钥失败: %w", err)
		}

		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			if _, err := b.SetupSrs(bytecode, srsPathFlag(), recursive).Await(ctx); err != nil {
				return err
			}
			proof, err := runWithSpinner(ctx, "生成证明", b.Prove(bytecode, witness, vk, disableZk, lowMemoryMode))
			if err != nil {
				return err
			}
			return writeOutput(outputPath, proof)
		})
	},
}

// verifyCmd 验证证明
var verifyCmd = &cobra.Command{
	Use:   "verify <proof-file> <vk-file>",
	Short: "验证证明，无效时以非零状态退出",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		proof, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("读取证明失败: %w", err)
		}
		vk, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("读取验证密钥失败: %w", err)
		}

		return withBridge(func(ctx context.Context, b *noirzk.Bridge) error {
			ok, err := runWithSpinner(ctx, "验证证明", b.VerifyProof(proof, vk, disableZk))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("证明无效")
			}
			pterm.Success.Println("证明有效")
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{vkCmd, witnessCmd, proveCmd} {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "输出文件")
		_ = c.MarkFlagRequired("output")
	}
	for _, c := range []*cobra.Command{vkCmd, proveCmd, verifyCmd} {
		c.Flags().BoolVar(&disableZk, "disable-zk", false, "关闭零知识（需与生成密钥时一致）")
	}
	for _, c := range []*cobra.Command{vkCmd, proveCmd} {
		c.Flags().BoolVar(&lowMemoryMode, "low-memory", false, "低内存模式（不使用缓存）")
		c.Flags().BoolVar(&recursive, "recursive", false, "SRS额外预留递归验证所需的规模")
	}
}
