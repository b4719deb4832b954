package mlp

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochEnd(epoch int, loss float64, n *Network)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(n *Network)                        {}
func (BaseCallback) OnTrainEnd(n *Network)                          {}
func (BaseCallback) OnEpochEnd(epoch int, loss float64, n *Network) {}

// EarlyStopping stops training when the epoch loss has not improved by
// more than MinDelta for Patience consecutive epochs.
type EarlyStopping struct {
	BaseCallback
	Patience int
	MinDelta float64

	bestLoss     float64
	numBadEpochs int
	stopped      bool
	StoppedEpoch int
}

func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{
		Patience: patience,
		MinDelta: minDelta,
		bestLoss: math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss < c.bestLoss-c.MinDelta {
		c.bestLoss = loss
		c.numBadEpochs = 0
		return
	}
	c.numBadEpochs++
	if c.Patience > 0 && c.numBadEpochs >= c.Patience {
		c.stopped = true
		c.StoppedEpoch = epoch
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.stopped }

// LogCallback logs the epoch loss every Interval epochs.
type LogCallback struct {
	BaseCallback
	Interval int
	Logger   logrus.FieldLogger
}

func (c LogCallback) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		c.Logger.WithFields(logrus.Fields{"epoch": epoch, "loss": loss}).Info("Training progress")
	}
}

// CSVLogger writes epoch, loss and elapsed seconds to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	// Err holds the first write failure; training is not interrupted.
	Err error

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

func NewCSVLogger(filename string) *CSVLogger {
	return &CSVLogger{Filename: filename}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	if err := os.MkdirAll(filepath.Dir(c.Filename), 0o755); err != nil {
		c.Err = err
		return
	}
	file, err := os.Create(c.Filename)
	if err != nil {
		c.Err = fmt.Errorf("CSVLogger: failed to open file %s: %w", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()
	c.write([]string{"epoch", "loss", "time_seconds"})
}

func (c *CSVLogger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.writer == nil {
		return
	}
	c.write([]string{
		strconv.Itoa(epoch),
		fmt.Sprintf("%.6f", loss),
		fmt.Sprintf("%.2f", time.Since(c.start).Seconds()),
	})
}

func (c *CSVLogger) write(record []string) {
	if err := c.writer.Write(record); err != nil && c.Err == nil {
		c.Err = fmt.Errorf("CSVLogger: failed to write record: %w", err)
	}
	c.writer.Flush()
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file != nil {
		c.writer.Flush()
		if err := c.file.Close(); err != nil && c.Err == nil {
			c.Err = err
		}
		c.file = nil
		c.writer = nil
	}
}
