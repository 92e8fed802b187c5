package replay

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/algoreplay/replay/store"
)

// Renderable is implemented by scenes that can describe themselves as text.
// Fingerprints prefer Render over JSON so unexported scene state is covered.
type Renderable interface {
	Render() string
}

// Fingerprint hashes a log and the scene it produced. Two passes with equal
// fingerprints drew the same frame from the same history.
//
// Algorithm:
//  1. For each entry: write the name, the JSON-encoded args and the stop step
//     (8-byte big-endian).
//  2. Write scene.Render() when the scene is Renderable, else its JSON encoding.
//  3. Return "sha256:" + hex-encoded hash.
func Fingerprint[S any](entries []Action, scene S) (string, error) {
	h := sha256.New()

	buf := make([]byte, 8)
	for _, a := range entries {
		h.Write([]byte(a.Name))
		args, err := json.Marshal(a.Args)
		if err != nil {
			return "", fmt.Errorf("failed to encode args of %s: %w", a.Name, err)
		}
		h.Write(args)
		binary.BigEndian.PutUint64(buf, uint64(a.StopStep))
		h.Write(buf)
	}

	if r, ok := any(scene).(Renderable); ok {
		h.Write([]byte(r.Render()))
	} else {
		data, err := json.Marshal(scene)
		if err != nil {
			return "", fmt.Errorf("failed to encode scene: %w", err)
		}
		h.Write(data)
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// record saves a transcript of the pass that just ended. Store failures are
// logged and never interrupt navigation.
func (e *Engine[S]) record(ctx context.Context, out passOutcome) {
	if e.cfg.store == nil {
		return
	}

	log := e.log.Entries()
	fp, err := Fingerprint(log, e.scene)
	if err != nil {
		e.cfg.logger.Warn("fingerprint failed", "session", e.cfg.sessionID, "pass", e.pass, "error", err)
	}

	entries := make([]store.Entry, len(log))
	for i, a := range log {
		entries[i] = store.Entry{Name: a.Name, Args: a.Args, StopStep: a.StopStep}
	}

	trigger := ""
	if e.passTrigger != 0 {
		trigger = e.passTrigger.String()
	}

	t := store.Transcript{
		SessionID:   e.cfg.sessionID,
		Pass:        e.pass,
		Outcome:     out.label(),
		Trigger:     trigger,
		Entries:     entries,
		Steps:       e.passSteps,
		Fingerprint: fp,
		CreatedAt:   time.Now(),
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.cfg.store.SaveTranscript(saveCtx, t); err != nil {
		e.cfg.logger.Warn("transcript not saved", "session", e.cfg.sessionID, "pass", e.pass, "error", err)
	}
}
