package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"golang.org/x/term"

	"github.com/weisyn/noirzk/internal/config"
	corelog "github.com/weisyn/noirzk/internal/core/infrastructure/log"
	"github.com/weisyn/noirzk/internal/core/zkproof"
	cfginterfaces "github.com/weisyn/noirzk/pkg/interfaces/config"
	"github.com/weisyn/noirzk/pkg/noirzk"
	"github.com/weisyn/noirzk/pkg/types"
	runtimeutil "github.com/weisyn/noirzk/pkg/utils/runtime"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string // 配置文件路径
	DataDir    string // 数据目录覆盖
	SRSPath    string // SRS目录或文件
	Verbose    bool   // 详细日志
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "noirzk",
	Short: "零知识证明生命周期工具",
	Long: `noirzk - PLONK/KZG (BN254) 证明生命周期工具

典型流程:
  noirzk compile program.json -o circuit.bc
  noirzk setup-srs circuit.bc
  noirzk vk circuit.bc -o circuit.vk
  noirzk witness 3 5 -o witness.bin
  noirzk prove circuit.bc witness.bin circuit.vk -o proof.bin
  noirzk verify proof.bin circuit.vk`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 输出被重定向时关闭颜色与动画
		if !isTerminal() {
			pterm.DisableStyling()
		}
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "JSON配置文件路径")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DataDir, "data-dir", "", "数据目录（SRS缓存位于 <data-dir>/srs）")
	rootCmd.PersistentFlags().StringVar(&globalFlags.SRSPath, "srs-path", "", "SRS目录或 .srs 文件（覆盖配置）")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(setupSrsCmd)
	rootCmd.AddCommand(setupSrsSizeCmd)
	rootCmd.AddCommand(vkCmd)
	rootCmd.AddCommand(witnessCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(verifyCmd)
}

// loadAppConfig 加载配置文件并应用命令行覆盖
func loadAppConfig() (*types.AppConfig, error) {
	appConfig, err := config.LoadAppConfig(globalFlags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if globalFlags.DataDir != "" {
		appConfig.DataDir = &globalFlags.DataDir
	}
	if globalFlags.Verbose {
		level := "debug"
		if appConfig.Log == nil {
			appConfig.Log = &types.UserLogConfig{}
		}
		appConfig.Log.Level = &level
	}
	return appConfig, nil
}

// srsPathFlag 未指定时返回 nil，使用配置中的默认目录
func srsPathFlag() *string {
	if globalFlags.SRSPath == "" {
		return nil
	}
	p := globalFlags.SRSPath
	return &p
}

// withBridge 启动依赖注入容器，在其生命周期内执行 fn
func withBridge(fn func(ctx context.Context, b *noirzk.Bridge) error) error {
	noirzk.Init()

	// 容器中按 cgroup 上限设置Go运行时软上限，避免证明生成被 OOM 终止
	if res, err := runtimeutil.ApplyMemoryLimit(0.8); err != nil {
		pterm.Warning.Printfln("读取 cgroup 内存上限失败: %v", err)
	} else if res.Applied && globalFlags.Verbose {
		pterm.Info.Printfln("已设置内存软上限: %d MiB (%s %d MiB)", res.TargetBytes>>20, res.Source, res.LimitBytes>>20)
	}

	appConfig, err := loadAppConfig()
	if err != nil {
		return err
	}

	var bridge *noirzk.Bridge
	app := fx.New(
		fx.NopLogger,
		fx.Provide(func() cfginterfaces.AppOptions { return config.NewAppOptions(appConfig) }),
		config.Module(),
		corelog.Module(),
		zkproof.Module(),
		fx.Provide(noirzk.New),
		fx.Populate(&bridge),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() {
		_ = bridge.Close()
		_ = app.Stop(ctx)
	}()

	return fn(ctx, bridge)
}

// readBytecode 读取字节码文件
func readBytecode(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取字节码失败: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// writeOutput 写入输出文件；path 为空时写到标准输出
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	pterm.Success.Printfln("已写入 %s (%d 字节)", path, len(data))
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// runWithSpinner 显示进度并等待 Future 完成
func runWithSpinner[T any](ctx context.Context, text string, f *zkproof.Future[T]) (T, error) {
	if !isTerminal() {
		return f.Await(ctx)
	}
	spinner, _ := pterm.DefaultSpinner.Start(text)
	v, err := f.Await(ctx)
	if spinner != nil {
		if err != nil {
			spinner.Fail(text)
		} else {
			spinner.Success(text)
		}
	}
	return v, err
}
