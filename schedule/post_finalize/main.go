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

	app, err := bootstrap.New(ctx, "post_finalize_schedule", bootstrap.Options{Broker: true})
	if err != nil {
		logger.Fatalf("> 初始化失败: %v", err)
	}
	defer app.Close()
	log := app.Logger

	c := cron.New(cron.WithSeconds(), cron.WithChain(
		cron.Recover(cron.PrintfLogger(log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(log)),
	))

	_, err = c.AddFunc(app.Settings.PostFinalizeCron, func() {
		summary, err := app.PostFinalize.RunOnce(ctx)
		if err != nil {
			log.Errorf("> 后置任务执行失败: %v", err)
		} else if summary.Checked > 0 {
			log.Infof("> 后置任务: checked=%d settled=%d failed=%d", summary.Checked, summary.Settled, summary.Failed)
		}

		// outbox 只在配置了 RabbitMQ 时存在
		if app.Outbox != nil {
			if _, _, err := app.Outbox.Relay(ctx); err != nil {
				log.Errorf("> outbox 投递失败: %v", err)
			}
		}

		if _, err := app.Stale.Sweep(ctx); err != nil {
			log.Errorf("> stale finalize sweep failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("> 添加定时任务失败: %v", err)
	}

	log.Infof("> 定时任务已启动: %s", app.Settings.PostFinalizeCron)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("> post-finalize schedule stopped")
}
