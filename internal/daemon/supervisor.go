package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ProcessStatus is the state of a supervised daemon process.
type ProcessStatus string

const (
	ProcessStopped ProcessStatus = "stopped"
	ProcessRunning ProcessStatus = "running"
	ProcessFailed  ProcessStatus = "failed"
)

// SupervisorConfig describes how to launch the telephony daemon.
type SupervisorConfig struct {
	Binary string
	Args   []string

	// RestartOnFailure relaunches the daemon when it exits on its own.
	RestartOnFailure bool

	// RestartDelay is the pause before a relaunch. Defaults to 2s.
	RestartDelay time.Duration

	// MaxRestarts limits relaunches. 0 means unlimited.
	MaxRestarts int

	// GracefulTimeout bounds the wait after SIGTERM before SIGKILL. Defaults to 5s.
	GracefulTimeout time.Duration
}

// ProcessStats summarises the supervised process. Exits counts unexpected
// exits.
type ProcessStats struct {
	Status    ProcessStatus `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Exits     int           `json:"exits"`
	LastError string        `json:"last_error,omitempty"`
}

// Supervisor runs the telephony daemon as a child process for installs where
// the client owns the daemon's lifetime.
type Supervisor struct {
	cfg    SupervisorConfig
	logger Logger

	mu            sync.Mutex
	cmd           *exec.Cmd
	status        ProcessStatus
	exits         int
	lastErr       error
	stopRequested bool
	done          chan struct{}
}

// NewSupervisor creates a stopped supervisor.
func NewSupervisor(cfg SupervisorConfig, logger Logger) *Supervisor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 2 * time.Second
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Supervisor{cfg: cfg, logger: logger, status: ProcessStopped}
}

// Start launches the daemon and watches it until Stop or ctx ends.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status == ProcessRunning {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.stopRequested = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	cmd, err := s.launch(ctx)
	if err != nil {
		s.mu.Lock()
		s.status = ProcessFailed
		s.lastErr = err
		close(s.done)
		s.mu.Unlock()
		return err
	}
	go s.watch(ctx, cmd)
	return nil
}

func (s *Supervisor) launch(ctx context.Context) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.cfg.Args...) //nolint:gosec // Binary comes from operator config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting daemon %s: %w", s.cfg.Binary, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.status = ProcessRunning
	s.mu.Unlock()

	go s.capture("stdout", stdout)
	go s.capture("stderr", stderr)
	s.logger.Info("daemon process started", "binary", s.cfg.Binary, "pid", cmd.Process.Pid)
	return cmd, nil
}

func (s *Supervisor) capture(stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug("daemon output", "stream", stream, "line", scanner.Text())
	}
}

// watch waits for each exit and relaunches while allowed.
func (s *Supervisor) watch(ctx context.Context, cmd *exec.Cmd) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	defer close(done)

	for {
		err := cmd.Wait()

		s.mu.Lock()
		if s.stopRequested {
			s.status = ProcessStopped
			s.mu.Unlock()
			s.logger.Info("daemon process stopped")
			return
		}
		s.status = ProcessFailed
		s.lastErr = err
		s.exits++
		attempt := s.exits
		s.mu.Unlock()

		s.logger.Warn("daemon process exited unexpectedly", "error", err)
		if !s.cfg.RestartOnFailure {
			return
		}
		if s.cfg.MaxRestarts > 0 && attempt > s.cfg.MaxRestarts {
			s.logger.Error("daemon restart limit reached", "attempts", attempt-1)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.RestartDelay):
		}

		s.mu.Lock()
		stop := s.stopRequested
		s.mu.Unlock()
		if stop {
			return
		}

		s.logger.Info("restarting daemon process", "attempt", attempt)
		next, err := s.launch(ctx)
		if err != nil {
			s.logger.Error("daemon restart failed", "error", err)
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			return
		}
		cmd = next
	}
}

// Stop sends SIGTERM to the daemon's process group and escalates to SIGKILL
// after the graceful timeout.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	s.stopRequested = true
	cmd := s.cmd
	done := s.done
	running := s.status == ProcessRunning
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	if !running || cmd == nil || cmd.Process == nil {
		<-done
		return nil
	}

	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("signalling daemon failed", "pid", pid, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.GracefulTimeout):
		s.logger.Warn("daemon did not stop in time, killing", "pid", pid)
	}
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing daemon process group: %w", err)
	}
	<-done
	return nil
}

// Stats returns the current process state.
func (s *Supervisor) Stats() ProcessStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ProcessStats{Status: s.status, Exits: s.exits}
	if s.status == ProcessRunning && s.cmd != nil && s.cmd.Process != nil {
		st.PID = s.cmd.Process.Pid
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
