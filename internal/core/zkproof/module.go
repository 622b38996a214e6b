package zkproof

import (
	"context"
	"fmt"

	zkconfig "github.com/weisyn/noirzk/internal/config/zkproof"
	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
)

// ModuleParams 定义零知识证明模块的依赖参数
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    log.Logger
	Options   *zkconfig.ZKOptions
}

// ModuleOutput 定义零知识证明模块的输出结构
type ModuleOutput struct {
	fx.Out

	Manager *Manager
	Pool    *WorkerPool
}

// Module 返回零知识证明模块
func Module() fx.Option {
	return fx.Module("zkproof",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 组装管理器与工作线程池，并注册生命周期钩子
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	source, err := NewSRSSource(params.Options)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建SRS来源失败: %w", err)
	}

	manager, err := NewManager(params.Options, source, params.Logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建零知识证明管理器失败: %w", err)
	}

	pool := NewWorkerPool(params.Options.Workers, params.Options.QueueSize, params.Logger)
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			pool.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			pool.Stop()
			manager.ReleaseCaches()
			return nil
		},
	})

	return ModuleOutput{Manager: manager, Pool: pool}, nil
}
