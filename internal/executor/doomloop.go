package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// DoomLoopThreshold is the number of identical consecutive calls before a
// repeated call is flagged.
const DoomLoopThreshold = 3

// DoomLoopDetector tracks repeated tool calls per session to catch a model
// stuck calling the same tool with the same input over and over.
type DoomLoopDetector struct {
	mu      sync.Mutex
	history map[types.SessionID][]string
}

// NewDoomLoopDetector creates an empty detector.
func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{history: make(map[types.SessionID][]string)}
}

// Check records the call and reports whether it is the DoomLoopThreshold'th
// consecutive identical call (same tool, same raw input) for the session.
func (d *DoomLoopDetector) Check(sessionID types.SessionID, toolName string, input json.RawMessage) bool {
	hash := hashCall(toolName, input)

	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.history[sessionID]
	isLoop := false
	if len(history) >= DoomLoopThreshold-1 {
		allSame := true
		start := len(history) - (DoomLoopThreshold - 1)
		for i := start; i < len(history); i++ {
			if history[i] != hash {
				allSame = false
				break
			}
		}
		isLoop = allSame
	}

	history = append(history, hash)
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	d.history[sessionID] = history

	return isLoop
}

// Reset drops the running streak for a session, e.g. after a different
// call interrupts an otherwise-repeating pattern.
func (d *DoomLoopDetector) Reset(sessionID types.SessionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history[sessionID] = nil
}

// Clear removes all history for a session.
func (d *DoomLoopDetector) Clear(sessionID types.SessionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, sessionID)
}

func hashCall(toolName string, input json.RawMessage) string {
	data, _ := json.Marshal(map[string]any{"tool": toolName, "input": json.RawMessage(input)})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
