package sandbox

import (
	"bufio"
	"context"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/sync/errgroup"

	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// DetectVersions probes every configured language concurrently. The value is the
// first line the probe printed, or nil when the toolchain is unavailable.
func (s *Service) DetectVersions(ctx context.Context) map[string]*string {
	ids := s.Languages()
	versions := make([]*string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		lang := s.languages[id]
		g.Go(func() error {
			versions[i] = s.probe(gctx, lang.ID, lang.VersionCmd)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*string, len(ids))
	for i, id := range ids {
		out[id] = versions[i]
	}
	return out
}

func (s *Service) probe(ctx context.Context, id, cmdline string) *string {
	if strings.TrimSpace(cmdline) == "" {
		return nil
	}
	args, err := shlex.Split(cmdline)
	if err != nil || len(args) == 0 {
		logger.Warn(ctx, "invalid version command", zap.String("language", id), zap.String("cmd", cmdline))
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	// java -version writes to stderr
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		logger.Debug(ctx, "language probe failed", zap.String("language", id), zap.Error(err))
		return nil
	}
	line := firstLine(string(out))
	return &line
}

func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	if sc.Scan() {
		return strings.TrimRight(sc.Text(), "\r")
	}
	return ""
}
