package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"roundsettle/internal/bootstrap"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "contribution_indexer", bootstrap.Options{})
	if err != nil {
		logger.Fatalf("> 初始化失败: %v", err)
	}
	defer app.Close()
	log := app.Logger

	// 单次执行未结束时跳过下一次触发
	c := cron.New(cron.WithSeconds(), cron.WithChain(
		cron.Recover(cron.PrintfLogger(log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(log)),
	))

	_, err = c.AddFunc(app.Settings.IndexCron, func() {
		activated, ended, err := app.Sweeper.Sweep(ctx)
		if err != nil {
			log.Errorf("> 轮次状态更新失败: %v", err)
		}
		if activated+ended > 0 {
			log.Infof("> 轮次状态更新: activated=%d ended=%d", activated, ended)
		}

		results, err := app.Indexer.IndexAll(ctx)
		if err != nil {
			log.Errorf("> 索引贡献事件失败: %v", err)
			return
		}
		for _, r := range results {
			if len(r.Errors) > 0 {
				log.WithField("round_id", r.RoundID).Warnf("> %d 个区块段失败, checkpoint=%d", r.ChunksFailed, r.Checkpoint)
			}
		}
	})
	if err != nil {
		log.Fatalf("> 添加定时任务失败: %v", err)
	}

	log.Infof("> 定时任务已启动: %s", app.Settings.IndexCron)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("> indexer schedule stopped")
}
