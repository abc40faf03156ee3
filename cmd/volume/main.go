// Package main is a command that estimates an object's volume from a
// persisted depth capture.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"

	"github.com/endev-llc/pocketscale/pointcloud"
	"github.com/endev-llc/pocketscale/reconstruction"
	"github.com/endev-llc/pocketscale/segmentation"
	"github.com/endev-llc/pocketscale/transform"
	"github.com/endev-llc/pocketscale/voxel"
)

var logger = golog.NewDevelopmentLogger("pocketscale")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	flags := flag.NewFlagSet("volume", flag.ContinueOnError)
	backgroundFile := flags.String("background", "", "capture subset holding background-surface samples, for floor estimation")
	pcdOut := flags.String("pcd", "", "write the reconstructed voxel centers to this file as ASCII PCD")
	crop := flags.Bool("crop", true, "crop the solid to the estimated floor")
	density := flags.Float64("density", voxel.DefaultReconstructConfig().TargetDensity, "target points per voxel")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 {
		return fmt.Errorf("need <capture file>")
	}

	samples, intrinsics, err := transform.ReadCaptureFile(flags.Arg(0), logger)
	if err != nil {
		return err
	}
	if intrinsics == nil {
		return fmt.Errorf("capture file %q carries no intrinsics header", flags.Arg(0))
	}

	cfg := reconstruction.DefaultConfig()
	cfg.Reconstruct.TargetDensity = *density
	sess := reconstruction.NewSession(nil, cfg, logger)
	if err := sess.LoadCapture(samples, intrinsics, nil); err != nil {
		return err
	}

	// without an interactive segmentation pass the whole frame is the
	// primary region
	primary := segmentation.NewMask(intrinsics.Width, intrinsics.Height)
	for y := 0; y < intrinsics.Height; y++ {
		for x := 0; x < intrinsics.Width; x++ {
			primary.Set(x, y, true)
		}
	}

	var background *segmentation.Mask
	if *backgroundFile != "" {
		bgSamples, _, err := transform.ReadCaptureFile(*backgroundFile, logger)
		if err != nil {
			return err
		}
		background = segmentation.NewMask(intrinsics.Width, intrinsics.Height)
		for _, s := range bgSamples {
			background.Set(s.PixelX, s.PixelY, true)
		}
	}

	if err := sess.SelectRegions(primary, nil, background); err != nil {
		return err
	}
	res, err := sess.Reconstruct(context.Background())
	if err != nil {
		return err
	}
	if *crop {
		if cropped, err := sess.ApplyFloorCrop(); err == nil {
			res = cropped
		}
	}

	fmt.Printf("voxels: %d\n", res.Voxels.Size())
	fmt.Printf("voxel size: %.6f m\n", res.VoxelSize)
	fmt.Printf("volume: %.9f m^3\n", res.Volume)

	if *pcdOut != "" {
		if err := writePCD(*pcdOut, sess.Grid(), res.Voxels); err != nil {
			return err
		}
	}
	return nil
}

func writePCD(fn string, grid *voxel.Grid, set *voxel.Set) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return pointcloud.ToPCD(grid.VoxelCenters(set), f)
}
