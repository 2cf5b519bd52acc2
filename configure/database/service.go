package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// DatabaseOptions 单个数据库实例的配置
type DatabaseOptions struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any // 打开连接后自动迁移的模型
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, dialector gorm.Dialector) *DatabaseOptions {
	return &DatabaseOptions{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

// Validate 验证配置
func (o *DatabaseOptions) Validate() error {
	if o.Name == "" {
		return errors.New("database: instance name is required")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database: dialector is required for '%s'", o.Name)
	}
	return nil
}

// DatabaseFactory 管理命名的 gorm 连接
type DatabaseFactory struct {
	dbs map[string]*gorm.DB
	mu  sync.RWMutex
}

// NewDatabaseFactory 创建数据库工厂
func NewDatabaseFactory() *DatabaseFactory {
	return &DatabaseFactory{dbs: make(map[string]*gorm.DB)}
}

// Register 打开连接、配置连接池并执行自动迁移
func (f *DatabaseFactory) Register(opts DatabaseOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.dbs[opts.Name]; exists {
		return fmt.Errorf("database: instance '%s' already registered", opts.Name)
	}

	gormConfig := opts.GormConfig
	if gormConfig == nil {
		gormConfig = &gorm.Config{}
	}

	db, err := gorm.Open(opts.Dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("database: open '%s': %w", opts.Name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB for '%s': %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			return fmt.Errorf("database: auto migrate '%s': %w", opts.Name, err)
		}
	}

	f.dbs[opts.Name] = db
	return nil
}

// Get 按名称取数据库实例
func (f *DatabaseFactory) Get(name string) (*gorm.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	db, ok := f.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database: instance '%s' not found", name)
	}
	return db, nil
}

// Names 返回已注册的实例名
func (f *DatabaseFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.dbs))
	for name := range f.dbs {
		names = append(names, name)
	}
	return names
}

// Each 遍历所有数据库实例
func (f *DatabaseFactory) Each(fn func(name string, db *gorm.DB)) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for name, db := range f.dbs {
		fn(name, db)
	}
}

// Close 关闭所有连接，返回聚合的错误
func (f *DatabaseFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, db := range f.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("database: access sql.DB for '%s': %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: close '%s': %w", name, err))
		}
	}
	f.dbs = make(map[string]*gorm.DB)

	return errors.Join(errs...)
}
