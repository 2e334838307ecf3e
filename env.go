package main

import (
	"context"
	syslog "log"
	"os"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/go-redis/redis/v8"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/config"
	"github.com/rqzrqh/paychan/contract"
	"github.com/rqzrqh/paychan/engine"
	"github.com/rqzrqh/paychan/notify"
	"github.com/rqzrqh/paychan/settlement"
	"github.com/rqzrqh/paychan/util"
)

// cmdEnv is what every command loads before doing its work.
type cmdEnv struct {
	baseDir string
	file    *config.File
}

func loadEnv(cctx *cli.Context) (*cmdEnv, error) {
	baseDir, err := config.BaseDir(cctx.String("repo"))
	if err != nil {
		return nil, err
	}

	file, err := config.Load(baseDir)
	if err != nil {
		return nil, err
	}

	return &cmdEnv{baseDir: baseDir, file: file}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// role reads the required --namespace flag.
func role(cctx *cli.Context) (common.Role, error) {
	ns := cctx.String("namespace")
	if ns == "" {
		return "", xerrors.New("--namespace is required: sender or receiver")
	}
	return common.ParseRole(ns)
}

func (e *cmdEnv) settings(cctx *cli.Context) (*config.Settings, error) {
	r, err := role(cctx)
	if err != nil {
		return nil, err
	}

	s, err := e.file.Resolve(e.baseDir, r, os.Getenv)
	if err != nil {
		return nil, err
	}
	if p := cctx.String("password"); p != "" {
		s.Password = p
	}
	return s, nil
}

func openDB(dsn string) (*gorm.DB, error) {
	newLogger := logger.New(
		syslog.New(os.Stdout, "\r\n", syslog.LstdFlags),
		logger.Config{
			SlowThreshold:             1000 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	log.Info("sql ping success")
	return db, nil
}

// openEngine picks mysql when a dsn is given, memory when asked for, and the
// badger file under the repo otherwise.
func (e *cmdEnv) openEngine(ctx context.Context, cctx *cli.Context, s *config.Settings) (engine.Engine, error) {
	if dsn := firstNonEmpty(cctx.String("db"), e.file.DB); dsn != "" {
		db, err := openDB(dsn)
		if err != nil {
			return nil, err
		}
		return engine.NewGormEngine(db), nil
	}

	if cctx.Bool("in-memory") {
		return engine.NewMemoryEngine(), nil
	}

	if err := os.MkdirAll(e.baseDir, 0700); err != nil {
		return nil, err
	}
	return engine.OpenBadger(ctx, s.DatabaseFile)
}

func (e *cmdEnv) openGateway(ctx context.Context, cctx *cli.Context) (*contract.Client, jsonrpc.ClientCloser, error) {
	tokenAddr := firstNonEmpty(cctx.String("node"), e.file.Node)
	if tokenAddr == "" {
		return nil, nil, xerrors.New("no api info, set --node")
	}
	return util.GetChannelAPI(ctx, tokenAddr)
}

func (e *cmdEnv) openNotifier(ctx context.Context, cctx *cli.Context) (settlement.Notifier, func(), error) {
	addr := firstNonEmpty(cctx.String("redis"), e.file.Redis)
	if addr == "" {
		return notify.Nop{}, func() {}, nil
	}

	rds := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	pong, err := rds.Ping(ctx).Result()
	if err != nil {
		rds.Close() //nolint:errcheck
		return nil, nil, err
	}
	log.Info("redis response ", pong)

	return notify.NewRedisNotifier(rds), func() { rds.Close() }, nil //nolint:errcheck
}
