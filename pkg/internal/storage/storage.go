// Package storage 聚合存储资源：关系库（资产注册表）、对象存储后端与消息队列.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	backend := mgr.GetObjectBackend()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/internal/model"
	dbc "github.com/yeisme/imagevault/pkg/internal/storage/db"
	mqc "github.com/yeisme/imagevault/pkg/internal/storage/mq"
	"github.com/yeisme/imagevault/pkg/internal/storage/object"
	nlog "github.com/yeisme/imagevault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB     *dbc.Client
	Object object.Backend
	MQ     *mqc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.DB = dbi

		if e := dbi.AutoMigrate(&model.ManagedAsset{}); e != nil {
			err = fmt.Errorf("migrate managed_assets: %w", e)

			return
		}

		// 对象存储后端：启动时确定一次本地/云端模式
		backend, e := object.New(ctx, cfg.Storage)
		if e != nil {
			err = e

			return
		}

		m.Object = backend

		// MQ：不可用时降级为 noop，由 mq 包内部处理
		mqi, e := mqc.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.MQ = mqi

		mgr = m

		nlog.Logger().Info().Str("storage_mode", backend.Mode()).Msg("storage manager initialized")
	})

	return mgr, err
}

// GetObjectBackend 获取对象存储后端.
func (m *Manager) GetObjectBackend() object.Backend {
	return m.Object
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}
