package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/tarm/serial"
)

// DeviceSensorProvider reads positions from a GPS receiver emitting NMEA 0183 over a serial
// port. The port is opened on first use and kept open until Close.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	open    func() (io.ReadCloser, error)
	rc      io.ReadCloser
	scanner *bufio.Scanner
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	d := &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		timeout:  2 * time.Second,
		now:      time.Now,
	}
	d.open = func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: d.timeout})
	}
	return d
}

// GetLocation returns the next position fix read from the device.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (models.Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scanner == nil {
		rc, err := d.open()
		if err != nil {
			return models.Position{}, fmt.Errorf("open %s: %w", d.port, err)
		}
		d.rc = rc
		d.scanner = bufio.NewScanner(rc)
	}

	for d.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return models.Position{}, err
		}
		pos, ok, err := ParseSentence(d.scanner.Text(), d.now())
		if err != nil || !ok {
			continue
		}
		return pos, nil
	}

	err := d.scanner.Err()
	d.closeLocked()
	if err != nil {
		return models.Position{}, fmt.Errorf("read %s: %w", d.port, err)
	}
	return models.Position{}, ErrNoFix
}

// Close releases the serial port.
func (d *DeviceSensorProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *DeviceSensorProvider) closeLocked() error {
	if d.rc == nil {
		return nil
	}
	err := d.rc.Close()
	d.rc = nil
	d.scanner = nil
	return err
}

// ParseSentence extracts a position from a GGA or RMC sentence of any talker. ok is false for
// other sentence types and for sentences without a valid fix.
func ParseSentence(line string, now time.Time) (models.Position, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return models.Position{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return models.Position{}, false, err
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid || s.FixQuality == "" {
			return models.Position{}, false, nil
		}
		return models.Position{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Accuracy:  s.HDOP, // HDOP as a proxy for accuracy
			Timestamp: now,
		}, true, nil
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return models.Position{}, false, nil
		}
		return models.Position{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Timestamp: now,
		}, true, nil
	}
	return models.Position{}, false, nil
}
