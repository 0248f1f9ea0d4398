package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Request task codes understood by the inference service.
const (
	taskObjects byte = 'o'
	taskHands   byte = 'h'
)

// serviceIdleTimeout stops the subprocess after this long without requests.
const serviceIdleTimeout = 30 * time.Second

// ServiceDetector implements ObjectDetector and HandDetector by talking to
// an inference subprocess. Each request is a task byte, a 4-byte big-endian
// length and a JPEG frame; each response is one JSON line.
type ServiceDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer

	// interpreter runs scriptPath; empty means a venv python or python3.
	interpreter string
}

// NewServiceDetector creates a new service detector.
// The subprocess is started lazily on first detection.
func NewServiceDetector(config Config, scriptPath string) (*ServiceDetector, error) {
	if scriptPath == "" {
		scriptPath = findServiceScript()
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("inference_service.py not found")
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("inference service script: %w", err)
	}

	return &ServiceDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// DetectObjects returns object detections for frame.
func (d *ServiceDetector) DetectObjects(frame *gocv.Mat) ([]Object, error) {
	var response struct {
		Objects []Object `json:"objects"`
	}
	if err := d.roundTrip(taskObjects, frame, &response); err != nil {
		return nil, err
	}
	return response.Objects, nil
}

// DetectHands returns hand landmarks for frame.
func (d *ServiceDetector) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := d.roundTrip(taskHands, frame, &response); err != nil {
		return nil, err
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

func (d *ServiceDetector) roundTrip(task byte, frame *gocv.Mat, response any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	header := make([]byte, 5)
	header[0] = task
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal([]byte(line), response); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	d.resetIdleTimer()
	return nil
}

// Close shuts down the subprocess.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	interpreter := d.interpreter
	if interpreter == "" {
		interpreter = findVenvPython()
	}
	if interpreter == "" {
		interpreter = "python3"
	}

	d.cmd = exec.Command(interpreter, d.scriptPath,
		"--conf", strconv.FormatFloat(d.config.ObjectConfidence, 'f', -1, 64),
		"--iou", strconv.FormatFloat(d.config.IOUThreshold, 'f', -1, 64),
		"--hand-conf", strconv.FormatFloat(d.config.HandConfidence, 'f', -1, 64),
		"--landmark-conf", strconv.FormatFloat(d.config.LandmarkConfidence, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start inference service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(serviceIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/inference_service.py",
		"../scripts/inference_service.py",
		filepath.Join(execDir, "scripts/inference_service.py"),
		"/root/visionlink/scripts/inference_service.py",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the working directory or the executable.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand is a hand as reported by the service: the flat point layout of
// the on-device hand model.
type jsonHand struct {
	Points     []float64 `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	return HandLandmarks{
		Points:     ParseHandPoints(h.Points),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
}
