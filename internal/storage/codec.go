package storage

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

const topicPrefix = "# "

// DecodeRoadmap splits a library file into its topic and roadmap text. A
// leading "# <topic>" line names the topic; otherwise it is derived from the
// file name.
func DecodeRoadmap(path string, data []byte) (topic, raw string) {
	text := strings.TrimLeft(string(data), "\r\n\t ")
	first, rest, _ := strings.Cut(text, "\n")
	first = strings.TrimRight(first, "\r")
	if strings.HasPrefix(first, topicPrefix) {
		if t := strings.TrimSpace(first[len(topicPrefix):]); t != "" {
			return t, strings.TrimSpace(rest)
		}
	}
	return TopicFromPath(path), strings.TrimSpace(text)
}

// EncodeRoadmap produces the library file form of a roadmap.
func EncodeRoadmap(topic, raw string) []byte {
	var b strings.Builder
	b.WriteString(topicPrefix)
	b.WriteString(strings.TrimSpace(topic))
	b.WriteByte('\n')
	if raw = strings.TrimSpace(raw); raw != "" {
		b.WriteString(raw)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// TopicFromPath turns "go-concurrency_basics.txt" into "go concurrency basics".
func TopicFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
}

// FileName returns the library file name used when exporting topic.
func FileName(topic string) string {
	s := slug.Make(topic)
	if s == "" {
		s = "roadmap"
	}
	return s + Ext
}
