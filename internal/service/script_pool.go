package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"readcode_backend/internal/config"
	"readcode_backend/internal/util"
	"readcode_backend/pkg/logger"
	"readcode_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

// Evaluator 可复用的沙箱求值器实例。acquire 和 release 之间由单一
// 持有者独占，绝不会有两个任务并发使用同一实例。
type Evaluator interface {
	// Eval 运行仅由字面量构成的相等表达式，返回布尔结果。
	// 调用方只会拼接字面量比较，不会把未转义的用户输入并入可执行代码。
	Eval(ctx context.Context, expr string) (bool, error)
	// Reset 归还池之前清理实例状态，保证没有变量绑定泄漏
	Reset() error
	Close() error
}

type EvaluatorFactory func() (Evaluator, error)

// EvaluatorPool 固定容量的求值器池，每个语言族一个。
// 容量耗尽时 Acquire 阻塞直到超时，超时返回 ErrPoolTimeout，
// 上层把它降级为 "evaluation unavailable" 提示而非请求失败。
type EvaluatorPool struct {
	name      string
	capacity  int
	timeout   time.Duration
	factory   EvaluatorFactory
	handles   chan Evaluator
	closed    chan struct{}
	closeOnce sync.Once
}

func NewEvaluatorPool(name string, capacity int, acquireTimeout time.Duration, factory EvaluatorFactory) (*EvaluatorPool, error) {
	if capacity <= 0 {
		capacity = 1
	}
	p := &EvaluatorPool{
		name:     name,
		capacity: capacity,
		timeout:  acquireTimeout,
		factory:  factory,
		handles:  make(chan Evaluator, capacity),
		closed:   make(chan struct{}),
	}
	for i := 0; i < capacity; i++ {
		ev, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("create %s evaluator: %w", name, err)
		}
		p.handles <- ev
	}
	logger.Log.Info("Created evaluator pool", zap.String("pool", name), zap.Int("size", capacity))
	return p, nil
}

func (p *EvaluatorPool) Size() int {
	return p.capacity
}

// Acquire 阻塞等待空闲实例，超时或池已关闭时返回错误
func (p *EvaluatorPool) Acquire(ctx context.Context) (Evaluator, error) {
	monitoring.EvaluatorPoolWaiting.WithLabelValues(p.name).Inc()
	defer monitoring.EvaluatorPoolWaiting.WithLabelValues(p.name).Dec()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case ev := <-p.handles:
		monitoring.EvaluatorPoolInUse.WithLabelValues(p.name).Inc()
		return ev, nil
	case <-timer.C:
		return nil, util.ErrPoolTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, util.ErrPoolClosed
	}
}

// Release 清理并归还实例。任何取得实例的代码路径都必须调用它，
// 包括求值失败的路径；实例损坏时就地替换，池容量保持不变。
func (p *EvaluatorPool) Release(ev Evaluator) {
	if ev == nil {
		return
	}
	monitoring.EvaluatorPoolInUse.WithLabelValues(p.name).Dec()

	if err := ev.Reset(); err != nil {
		logger.Log.Warn("Evaluator reset failed, replacing instance",
			zap.String("pool", p.name), zap.Error(err))
		ev.Close()
		fresh, ferr := p.factory()
		if ferr != nil {
			logger.Log.Error("Failed to replace evaluator instance",
				zap.String("pool", p.name), zap.Error(ferr))
			return
		}
		ev = fresh
	}

	select {
	case p.handles <- ev:
	default:
		// 池已满说明出现了多余归还，直接销毁
		ev.Close()
	}
}

// EvalExpr 获取实例、求值、保证归还的便捷入口
func (p *EvaluatorPool) EvalExpr(ctx context.Context, expr string) (bool, error) {
	ev, err := p.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer p.Release(ev)
	return ev.Eval(ctx, expr)
}

func (p *EvaluatorPool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		for {
			select {
			case ev := <-p.handles:
				ev.Close()
			default:
				return
			}
		}
	})
}

// NewJvmPool JVM 语言族的池。CEL 的字面量语法（小写布尔、双引号
// 字符串、方括号列表）与 JVM 族的字面量拼写一致，且 CEL 程序
// 无法做 I/O 或无界循环，天然满足沙箱要求。
func NewJvmPool(cfg *config.EvaluatorConfig) (*EvaluatorPool, error) {
	return NewEvaluatorPool("jvm", cfg.JvmPoolSize, cfg.AcquireTimeout, newCelEvaluator)
}

// NewPythonPool Python 语言族的池，复用常驻的解释器子进程
func NewPythonPool(cfg *config.EvaluatorConfig) (*EvaluatorPool, error) {
	interpreter := cfg.PythonInterpreter
	return NewEvaluatorPool("python", cfg.PythonPoolSize, cfg.AcquireTimeout, func() (Evaluator, error) {
		return newPythonEvaluator(interpreter)
	})
}

type celEvaluator struct {
	env *cel.Env
}

func newCelEvaluator() (Evaluator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, err
	}
	return &celEvaluator{env: env}, nil
}

func (e *celEvaluator) Eval(ctx context.Context, expr string) (bool, error) {
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return false, iss.Err()
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]interface{}{})
	if err != nil {
		return false, err
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression is not boolean: %s", expr)
	}
	return result, nil
}

// 表达式不携带任何声明，编译即一次性，无状态可清理
func (e *celEvaluator) Reset() error { return nil }

func (e *celEvaluator) Close() error { return nil }

// 子进程里的按行求值循环：空 __builtins__ 限定为纯字面量求值，
// 每次求值都用全新的空环境，不会在实例间泄漏变量
const pythonEvalLoop = `import sys
for line in sys.stdin:
    expr = line.rstrip("\n")
    if not expr:
        continue
    try:
        result = eval(expr, {"__builtins__": {}}, {})
        print("OK" if result is True else "NO", flush=True)
    except Exception:
        print("ERR", flush=True)
`

type pythonEvaluator struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	broken bool
}

func newPythonEvaluator(interpreter string) (Evaluator, error) {
	cmd := exec.Command(interpreter, "-u", "-c", pythonEvalLoop)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &pythonEvaluator{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

func (e *pythonEvaluator) Eval(ctx context.Context, expr string) (bool, error) {
	if strings.ContainsAny(expr, "\r\n") {
		return false, errors.New("expression must be a single line")
	}
	if _, err := io.WriteString(e.stdin, expr+"\n"); err != nil {
		e.broken = true
		return false, err
	}

	type evalResult struct {
		line string
		err  error
	}
	ch := make(chan evalResult, 1)
	go func() {
		line, err := e.stdout.ReadString('\n')
		ch <- evalResult{strings.TrimSpace(line), err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			e.broken = true
			return false, res.err
		}
		switch res.line {
		case "OK":
			return true, nil
		case "NO":
			return false, nil
		default:
			return false, fmt.Errorf("python evaluation failed: %s", expr)
		}
	case <-ctx.Done():
		// 响应超时后无法再区分后续输出属于哪次求值，整个实例作废
		e.broken = true
		return false, ctx.Err()
	}
}

func (e *pythonEvaluator) Reset() error {
	if e.broken {
		return errors.New("python evaluator out of sync")
	}
	return nil
}

func (e *pythonEvaluator) Close() error {
	e.stdin.Close()
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	return e.cmd.Wait()
}
