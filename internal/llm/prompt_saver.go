package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"time"

	"meetdistill/internal/logger"
	"meetdistill/internal/safeio"
)

// PromptSaver implements PromptHook to persist prompts and raw responses
// under FS as prompt/<worker>.txt, one section per call, plus the latest raw
// reply as <worker>.raw.json. Write errors are logged as warnings and never
// fail the call.
type PromptSaver struct {
	FS  *safeio.SafeFS
	Now func() time.Time
}

func (p *PromptSaver) Before(ctx context.Context, worker, prompt string, input any) {
	var buf bytes.Buffer
	buf.WriteString("==== ")
	buf.WriteString(p.now().Format(time.RFC3339))
	buf.WriteString(" ====\n")
	buf.WriteString(prompt)
	if input != nil {
		buf.WriteString("\n\n[INPUT JSON]\n")
		jb, _ := json.MarshalIndent(input, "", "  ")
		buf.Write(jb)
	}
	buf.WriteString("\n\n")
	p.write(ctx, worker, p.FS.SafeAppendFile(path.Join("prompt", fileName(worker)+".txt"), buf.Bytes()))
}

func (p *PromptSaver) After(ctx context.Context, worker string, raw json.RawMessage, err error) {
	var buf bytes.Buffer
	buf.WriteString("[RESPONSE]\n")
	if err != nil {
		buf.WriteString("ERROR: " + err.Error() + "\n\n")
	} else {
		buf.Write(raw)
		buf.WriteString("\n\n")
	}
	name := fileName(worker)
	p.write(ctx, worker, p.FS.SafeAppendFile(path.Join("prompt", name+".txt"), buf.Bytes()))
	if err == nil {
		p.write(ctx, worker, p.FS.SafeWriteFile(name+".raw.json", raw))
	}
}

func (p *PromptSaver) write(ctx context.Context, worker string, err error) {
	if err != nil {
		logger.FromContext(ctx).Warn("prompt dump failed", "worker", worker, "error", err)
	}
}

func (p *PromptSaver) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func fileName(worker string) string {
	if worker == "" {
		return "unknown"
	}
	return worker
}
