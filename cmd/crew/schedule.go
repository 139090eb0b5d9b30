package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"content-crew/internal/adapter/console"
	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
	"content-crew/internal/usecase/scheduling"
)

// runSchedule registers scheduler.tasks and runs them until interrupted.
func runSchedule(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := bootstrap(ctx, args, false)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := requireAPIKey(a.cfg); err != nil {
		return err
	}
	if !a.cfg.Scheduler.Enabled || len(a.cfg.Scheduler.Tasks) == 0 {
		return fmt.Errorf("no scheduled tasks: set scheduler.enabled and scheduler.tasks in the config")
	}

	printer := console.New(os.Stdout, os.Stderr)
	runner, err := a.newRunner(printer)
	if err != nil {
		return err
	}

	sched := scheduling.NewScheduler(runner, a.log,
		scheduling.WithDefaultAgent(a.cfg.Crew.StartAgent),
		scheduling.WithTaskTimeout(a.cfg.Crew.Timeout),
		scheduling.WithResultFunc(func(task scheduling.Task, res *domain.RunResult, err error) {
			if err != nil {
				printer.Error(fmt.Sprintf("task %s failed:", task.Name), err)
				return
			}
			printer.Section(task.Name)
			fmt.Fprintln(os.Stdout, res.FinalOutput)
		}),
	)
	for _, tc := range a.cfg.Scheduler.Tasks {
		if err := sched.AddTask(taskFromConfig(tc)); err != nil {
			return err
		}
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	for _, name := range sched.Tasks() {
		if next := sched.NextRun(name); next != nil {
			a.log.Info("task scheduled", "name", name, "next_run", next.Format("2006-01-02 15:04:05"))
		}
	}

	<-ctx.Done()
	a.log.Info("stopping scheduler")
	return sched.Stop()
}

func taskFromConfig(tc config.ScheduledTaskConfig) scheduling.Task {
	return scheduling.Task{
		Name:     tc.Name,
		Schedule: tc.Schedule,
		Agent:    tc.Agent,
		Prompt:   tc.Prompt,
		OneShot:  tc.OneShot,
	}
}
