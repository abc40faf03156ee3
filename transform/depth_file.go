package transform

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Persisted capture schema: one sample per line as "pixelX pixelY depth",
// with optional leading comment lines of the form "# key=value" carrying the
// camera intrinsics. Cropped subsets are re-serialized in the same schema.

// ReadCaptureFile reads a persisted depth capture. The returned intrinsics
// are nil if the file carried none. Unknown header keys are ignored with a
// warning.
func ReadCaptureFile(fn string, logger golog.Logger) ([]DepthSample, *CameraIntrinsics, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error opening capture file %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ReadCapture(bufio.NewScanner(f), logger)
}

// ReadCapture reads the persisted capture schema from a scanner.
func ReadCapture(scanner *bufio.Scanner, logger golog.Logger) ([]DepthSample, *CameraIntrinsics, error) {
	var samples []DepthSample
	var params *CameraIntrinsics
	haveIntrinsics := false

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), "=")
			if !ok {
				continue // free-form comment
			}
			if params == nil {
				params = &CameraIntrinsics{}
			}
			if known := setIntrinsicsField(params, key, value); !known {
				logger.Warnf("ignoring unknown capture header key %q on line %d", key, lineNum)
				continue
			}
			haveIntrinsics = true
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, nil, errors.Errorf("malformed sample on line %d: %q", lineNum, line)
		}
		px, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bad pixel x on line %d", lineNum)
		}
		py, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bad pixel y on line %d", lineNum)
		}
		d, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bad depth on line %d", lineNum)
		}
		samples = append(samples, DepthSample{PixelX: px, PixelY: py, Depth: d})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "error reading capture")
	}
	if !haveIntrinsics {
		params = nil
	}
	return samples, params, nil
}

func setIntrinsicsField(params *CameraIntrinsics, key, value string) bool {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "fx", "fy", "ppx", "ppy":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		switch key {
		case "fx":
			params.Fx = v
		case "fy":
			params.Fy = v
		case "ppx":
			params.Ppx = v
		case "ppy":
			params.Ppy = v
		}
	case "ref_width", "ref_height", "width", "height":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		switch key {
		case "ref_width":
			params.RefWidth = v
		case "ref_height":
			params.RefHeight = v
		case "width":
			params.Width = v
		case "height":
			params.Height = v
		}
	default:
		return false
	}
	return true
}

// WriteCaptureFile persists samples and, if given, intrinsics in the capture
// schema.
func WriteCaptureFile(fn string, samples []DepthSample, params *CameraIntrinsics) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "error creating capture file %q", fn)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	if params != nil {
		if _, err = fmt.Fprintf(w,
			"# fx=%v\n# fy=%v\n# ppx=%v\n# ppy=%v\n# ref_width=%d\n# ref_height=%d\n# width=%d\n# height=%d\n",
			params.Fx, params.Fy, params.Ppx, params.Ppy,
			params.RefWidth, params.RefHeight, params.Width, params.Height); err != nil {
			return err
		}
	}
	for _, s := range samples {
		if _, err = fmt.Fprintf(w, "%d %d %v\n", s.PixelX, s.PixelY, s.Depth); err != nil {
			return err
		}
	}
	return w.Flush()
}
