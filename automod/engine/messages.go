package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// display names longer than this (in user-perceived characters) are cut short in chat notices
const maxNameLength = 48

const (
	wrongAnswerText    = "Wrong answer, please try again."
	acceptedText       = "Verification passed, welcome to the group!"
	filteredText       = "Prohibited content detected, the message has been deleted."
	kickedText         = "The user has been kicked."
	kickUsageText      = "Reply to a message with /kick to remove its author."
	kickNotAllowedText = "Only chat administrators can use /kick."
)

// Truncates name to maxNameLength grapheme clusters, so that combined emoji and accented letters are never split.
func shortName(name string) string {
	if uniseg.GraphemeClusterCount(name) <= maxNameLength {
		return name
	}
	var sb strings.Builder
	gr := uniseg.NewGraphemes(name)
	for i := 0; i < maxNameLength && gr.Next(); i++ {
		sb.WriteString(gr.Str())
	}
	sb.WriteString("…")
	return sb.String()
}

func welcomeText(name, question string, deadline time.Duration) string {
	name = shortName(name)
	return fmt.Sprintf("Welcome %s! Please answer this verification question: %s\n(Answer correctly within %s to stay in the group.)", name, question, humanDuration(deadline))
}

func timeoutText(name string, memberID int64) string {
	if name == "" {
		return fmt.Sprintf("User %d did not verify in time and has been removed from the group.", memberID)
	}
	name = shortName(name)
	return fmt.Sprintf("User %s (%d) did not verify in time and has been removed from the group.", name, memberID)
}

// eg "5 minutes", "1 minute", "90 seconds"
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	case d%time.Second == 0:
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	default:
		return d.String()
	}
}
