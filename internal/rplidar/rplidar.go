// Package rplidar drives a rotating ranging sensor speaking the RPLIDAR
// serial protocol and delivers per-revolution scans to the sector
// aggregator. Connection failures are retried with a fixed backoff; a
// failed cycle means "no data this cycle", never a pipeline error.
package rplidar

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/roadscan-data/surface.report/internal/defect"
	"github.com/roadscan-data/surface.report/internal/monitoring"
)

// Protocol constants.
const (
	syncByte      = 0xA5
	cmdScan       = 0x20
	cmdStop       = 0x25
	descriptorLen = 7
	sampleLen     = 5
)

// DefaultBaud is the serial rate of the A-series sensors.
const DefaultBaud = 115200

// reconnectBackoff is the fixed delay between reconnection attempts.
const reconnectBackoff = time.Second

// maxScanSamples caps one revolution's buffer against a sensor that never
// raises the new-scan flag.
const maxScanSamples = 8192

// ScanSink consumes complete scan revolutions.
type ScanSink interface {
	Ingest(scan []defect.Measurement)
}

// Driver reads measurement frames from the sensor and segments them into
// revolutions.
type Driver struct {
	PortName string
	Baud     int

	// OpenPort can be replaced in tests to supply a mock port.
	OpenPort func(name string, baud int) (io.ReadWriteCloser, error)

	sink ScanSink
}

// NewDriver creates a driver delivering scans to sink.
func NewDriver(portName string, baud int, sink ScanSink) *Driver {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &Driver{
		PortName: portName,
		Baud:     baud,
		OpenPort: openSerialPort,
		sink:     sink,
	}
}

func openSerialPort(name string, baud int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(name, mode)
}

// Run connects to the sensor and streams scans until the context is
// cancelled, reconnecting with a fixed backoff after any failure.
func (d *Driver) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := d.runOnce(ctx); err != nil {
			monitoring.Logf("[LIDAR] %v; retrying in %s", err, reconnectBackoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

// runOnce opens the port, starts a scan and streams revolutions until an
// error or cancellation.
func (d *Driver) runOnce(ctx context.Context) error {
	port, err := d.OpenPort(d.PortName, d.Baud)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.PortName, err)
	}
	defer func() {
		port.Write([]byte{syncByte, cmdStop})
		port.Close()
	}()

	if _, err := port.Write([]byte{syncByte, cmdScan}); err != nil {
		return fmt.Errorf("start scan: %w", err)
	}

	// Skip the scan response descriptor.
	descriptor := make([]byte, descriptorLen)
	if _, err := io.ReadFull(port, descriptor); err != nil {
		return fmt.Errorf("read descriptor: %w", err)
	}
	monitoring.Logf("[LIDAR] connected on %s @ %d", d.PortName, d.Baud)

	sample := make([]byte, sampleLen)
	var revolution []defect.Measurement

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := io.ReadFull(port, sample); err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
		m, newScan, ok := parseSample(sample)
		if !ok {
			// Lost sync; resync on the next frame whose check bits agree.
			if err := resync(port, sample); err != nil {
				return fmt.Errorf("resync: %w", err)
			}
			continue
		}
		if newScan && len(revolution) > 0 {
			d.sink.Ingest(revolution)
			revolution = revolution[:0]
		}
		if m.DistanceM > 0 {
			revolution = append(revolution, m)
		}
		if len(revolution) > maxScanSamples {
			d.sink.Ingest(revolution)
			revolution = revolution[:0]
		}
	}
}

// parseSample decodes one 5-byte measurement frame. Returns ok=false when
// the frame's check bits are inconsistent.
func parseSample(b []byte) (m defect.Measurement, newScan, ok bool) {
	s := b[0]&0x01 != 0
	notS := b[0]&0x02 != 0
	if s == notS {
		return m, false, false
	}
	if b[1]&0x01 == 0 {
		return m, false, false
	}

	angleQ6 := (uint16(b[2]) << 7) | (uint16(b[1]) >> 1)
	distQ2 := (uint16(b[4]) << 8) | uint16(b[3])

	m.AngleDeg = float64(angleQ6) / 64.0
	m.DistanceM = float64(distQ2) / 4.0 / 1000.0
	return m, s, true
}

// resync slides the 5-byte window one byte at a time until the check bits
// line up again.
func resync(port io.Reader, window []byte) error {
	one := make([]byte, 1)
	for i := 0; i < 4096; i++ {
		copy(window, window[1:])
		if _, err := io.ReadFull(port, one); err != nil {
			return err
		}
		window[sampleLen-1] = one[0]
		if _, _, ok := parseSample(window); ok {
			return nil
		}
	}
	return fmt.Errorf("no valid frame within resync window")
}
