package tableau

import "github.com/sirupsen/logrus"

// logEngineEvent is the shared helper the engine's hot-path call sites
// use for Debug/Trace-level structured logging, grounded on
// operator-lifecycle-manager's `log.WithField(...).Debugf(...)` idiom.
// Every helper is a no-op on a nil entry, so unit tests that build an
// Engine directly, without a Session, leave its logger nil and need no
// logger wired in; Session attaches one via Engine.SetLogger.
func logEngineEvent(log *logrus.Entry, event string, fields logrus.Fields) {
	if log == nil {
		return
	}
	entry := log.WithField("event", event)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Debug("tableau engine event")
}

// logBranchPush logs a branching context push at Trace level: the
// engine's innermost loop pushes far more often than a Session's
// top-level Debug lines should show.
func logBranchPush(log *logrus.Entry, kind RuleKind, node NodeID, level uint32, options int) {
	if log == nil {
		return
	}
	log.WithFields(logrus.Fields{
		"kind":    kind,
		"node":    node,
		"level":   level,
		"options": options,
	}).Trace("branch push")
}

// logBackjump logs a backjump's target level.
func logBackjump(log *logrus.Entry, fromLevel, toLevel uint32) {
	if log == nil {
		return
	}
	log.WithFields(logrus.Fields{"from": fromLevel, "to": toLevel}).Trace("backjump")
}

// logClash logs a clash's dependency set.
func logClash(log *logrus.Entry, dep DepSet) {
	if log == nil {
		return
	}
	log.WithField("dep", dep.Levels()).Trace("clash")
}

// logCacheResult logs a model-cache hit or miss.
func logCacheResult(log *logrus.Entry, hit bool, bp BP) {
	if log == nil {
		return
	}
	log.WithFields(logrus.Fields{"hit": hit, "bp": bp.String()}).Trace("model cache lookup")
}

// logBlockingDecision logs whether a node was found blocked.
func logBlockingDecision(log *logrus.Entry, node NodeID, blocked bool, by NodeID) {
	if log == nil {
		return
	}
	log.WithFields(logrus.Fields{"node": node, "blocked": blocked, "by": by}).Trace("blocking decision")
}
