// Package recorder writes answered questions to rotating JSONL transcripts.
package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/john/chatqa/internal/message"
)

const (
	// FilePrefix starts every transcript file name
	FilePrefix = "qa"
	// TimeLayout is the timestamp part of a transcript file name
	TimeLayout = "20060102_150405"

	maxNameAttempts = 100
)

// transcript is one open JSONL file
type transcript struct {
	file     *os.File
	writer   *bufio.Writer
	openedAt time.Time
	size     int64
	channel  string
	filename string
}

// Recorder appends answers to one transcript per channel and rotates them
// by age and size. Finished files are handed to the uploader.
type Recorder struct {
	outputDir   string
	rotateAfter time.Duration
	rotateBytes int64
	checkEvery  time.Duration

	open map[string]*transcript // key: channel
	now  func() time.Time
}

// New creates a new recorder
func New(outputDir string, rotateMinutes, rotateMegabytes int) *Recorder {
	return &Recorder{
		outputDir:   outputDir,
		rotateAfter: time.Duration(rotateMinutes) * time.Minute,
		rotateBytes: int64(rotateMegabytes) * 1024 * 1024,
		checkEvery:  time.Minute,
		open:        make(map[string]*transcript),
		now:         time.Now,
	}
}

// Start records answers until ctx is cancelled. Closed transcripts are sent
// on files; files may be nil when nothing uploads them.
func (r *Recorder) Start(ctx context.Context, answers <-chan message.Answer, files chan<- string) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ticker := time.NewTicker(r.checkEvery)
	defer ticker.Stop()

	for {
		select {
		case a := <-answers:
			if err := r.record(a); err != nil {
				log.Printf("Error recording answer %s: %v", a.ID, err)
			}

		case <-ticker.C:
			r.rotateDue(files)

		case <-ctx.Done():
			log.Println("Recorder shutting down, closing transcripts...")
			r.closeAll(files)
			return ctx.Err()
		}
	}
}

// record writes a single answer and flushes it, so a crash loses at most
// the line being written
func (r *Recorder) record(a message.Answer) error {
	t := r.open[a.Channel]
	if t == nil {
		var err error
		t, err = r.create(a.Channel)
		if err != nil {
			return err
		}
		r.open[a.Channel] = t
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	data = append(data, '\n')

	n, err := t.writer.Write(data)
	t.size += int64(n)
	if err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	return t.writer.Flush()
}

// create opens a new transcript. It never reuses an existing file: that
// one may already be queued for upload or deleted after it.
func (r *Recorder) create(channel string) (*transcript, error) {
	now := r.now()
	stamp := now.UTC().Format(TimeLayout)

	for n := 1; n <= maxNameAttempts; n++ {
		filename := fmt.Sprintf("%s_%s_%s.jsonl", FilePrefix, channel, stamp)
		if n > 1 {
			filename = fmt.Sprintf("%s_%s_%s-%d.jsonl", FilePrefix, channel, stamp, n)
		}
		path := filepath.Join(r.outputDir, filename)

		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create transcript: %w", err)
		}
		log.Printf("Opened transcript: %s", filename)

		return &transcript{
			file:     file,
			writer:   bufio.NewWriter(file),
			openedAt: now,
			channel:  channel,
			filename: filename,
		}, nil
	}

	return nil, fmt.Errorf("create transcript: no free name for %s_%s_%s", FilePrefix, channel, stamp)
}

// rotateDue closes transcripts that are too old or too large. The next
// answer for that channel opens a fresh file.
func (r *Recorder) rotateDue(files chan<- string) {
	for channel, t := range r.open {
		age := r.now().Sub(t.openedAt)
		switch {
		case r.rotateAfter > 0 && age >= r.rotateAfter:
			log.Printf("Rotating transcript %s (time limit)", t.filename)
		case r.rotateBytes > 0 && t.size >= r.rotateBytes:
			log.Printf("Rotating transcript %s (size limit)", t.filename)
		default:
			continue
		}
		r.finish(t, files)
		delete(r.open, channel)
	}
}

func (r *Recorder) closeAll(files chan<- string) {
	for channel, t := range r.open {
		r.finish(t, files)
		delete(r.open, channel)
	}
}

// finish closes a transcript and queues it for upload
func (r *Recorder) finish(t *transcript, files chan<- string) {
	if err := t.writer.Flush(); err != nil {
		log.Printf("Error flushing transcript %s: %v", t.filename, err)
	}
	if err := t.file.Close(); err != nil {
		log.Printf("Error closing transcript %s: %v", t.filename, err)
	}

	if files == nil {
		return
	}
	path := filepath.Join(r.outputDir, t.filename)
	select {
	case files <- path:
		log.Printf("Queued transcript for upload: %s", t.filename)
	default:
		log.Printf("Warning: upload queue full, transcript will be uploaded on next start: %s", t.filename)
	}
}
