package scheduler

import (
	"context"
	"time"

	"TinyTales/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Cron 包装 robfig/cron：任务 panic 会被恢复，上一轮未结束时跳过本轮
type Cron struct {
	c      *cron.Cron
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	l := zapCronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{c: c, loc: loc, ctx: ctx, cancel: cancel}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop 取消运行中任务的 context 并等待其返回
func (cr *Cron) Stop() {
	cr.cancel()
	<-cr.c.Stop().Done()
}

func (cr *Cron) Add(expr string, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() { job.Run(cr.ctx) })
}

func (cr *Cron) AddWithCtx(expr string, fn func(ctx context.Context)) (cron.EntryID, error) {
	return cr.Add(expr, FuncJob(fn))
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }

type zapCronLogger struct{}

func (zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
