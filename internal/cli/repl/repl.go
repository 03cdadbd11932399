// Package repl is a local console that feeds request frames straight into the
// RPC dispatcher, for debugging without a browser or a network.
package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

// errQuit ends the loop.
var errQuit = errors.New("quit")

// FrameHandler answers one request frame.
type FrameHandler interface {
	Handle(ctx context.Context, frame []byte) []byte
}

// Session holds REPL state.
type Session struct {
	handler      FrameHandler
	prettyJSON   bool
	outputWriter *bufio.Writer
	readFile     func(name string) ([]byte, error)
	nextID       int
}

func New(handler FrameHandler, out io.Writer, prettyJSON bool) *Session {
	if out == nil {
		out = os.Stdout
	}
	return &Session{
		handler:      handler,
		prettyJSON:   prettyJSON,
		outputWriter: bufio.NewWriter(out),
		readFile:     os.ReadFile,
	}
}

// Run reads lines with history and editing until exit, EOF or ctx ends.
func (s *Session) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pepper> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer stop()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				s.printLine("bye")
				return nil
			}
			s.printLine("error: %v", err)
		}
	}
}

// Exec handles one input line.
func (s *Session) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	switch line {
	case "exit", "quit":
		return errQuit
	case "help":
		s.printHelp()
		return nil
	}

	var frame []byte
	if strings.HasPrefix(line, "{") {
		frame = []byte(line)
	} else {
		tokens, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("parse command failed: %w", err)
		}
		body, err := s.buildFrame(tokens)
		if err != nil {
			return err
		}
		s.nextID++
		body["_msgId"] = s.nextID
		frame, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	s.renderResponse(s.handler.Handle(ctx, frame))
	return nil
}

func (s *Session) buildFrame(tokens []string) (map[string]interface{}, error) {
	cmd, args := tokens[0], tokens[1:]
	switch cmd {
	case "languages":
		return map[string]interface{}{"type": "languages"}, nil
	case "stats":
		return map[string]interface{}{"type": "submission_stats"}, nil
	case "recent":
		body := map[string]interface{}{"type": "recent_submissions"}
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", args[0])
			}
			body["limit"] = n
		}
		return body, nil
	case "history":
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: history <slug> [code]")
		}
		return map[string]interface{}{
			"type":        "submission_history",
			"problemSlug": args[0],
			"includeCode": len(args) > 1 && args[1] == "code",
		}, nil
	case "status":
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: status <slug>...")
		}
		return map[string]interface{}{"type": "check_problems_status", "problemSlugs": args}, nil
	case "run":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: run <lang> <file> [stdin-file]")
		}
		code, err := s.readFile(args[1])
		if err != nil {
			return nil, fmt.Errorf("read source failed: %w", err)
		}
		input := ""
		if len(args) > 2 {
			data, err := s.readFile(args[2])
			if err != nil {
				return nil, fmt.Errorf("read input failed: %w", err)
			}
			input = string(data)
		}
		return map[string]interface{}{"type": "execute", "language": args[0], "code": string(code), "input": input}, nil
	case "submit":
		if len(args) < 3 {
			return nil, fmt.Errorf("usage: submit <lang> <file> <slug>")
		}
		code, err := s.readFile(args[1])
		if err != nil {
			return nil, fmt.Errorf("read source failed: %w", err)
		}
		return map[string]interface{}{"type": "submit", "language": args[0], "code": string(code), "problemSlug": args[2]}, nil
	}
	return nil, fmt.Errorf("unknown command: %s (try help)", cmd)
}

func (s *Session) renderResponse(body []byte) {
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(body))
}

func (s *Session) printHelp() {
	s.printLine("usage: <command> args... | raw JSON frame")
	s.printLine("commands:")
	s.printLine("  languages | stats | recent [n]")
	s.printLine("  history <slug> [code] | status <slug>...")
	s.printLine("  run <lang> <file> [stdin-file] | submit <lang> <file> <slug>")
	s.printLine("system: help | exit")
	s.printLine("examples:")
	s.printLine("  run python ./main.py ./input.txt")
	s.printLine(`  {"type":"submission_history","problemSlug":"two-sum","_msgId":"a1"}`)
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
