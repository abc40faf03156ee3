package pointcloud

import (
	"fmt"
	"io"

	"github.com/golang/geo/r3"
)

// ToPCD writes the cloud to out in ASCII PCD format, for consumption by
// external viewers.
func ToPCD(cloud *Cloud, out io.Writer) error {
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		cloud.Size(), 1, cloud.Size())
	if err != nil {
		return err
	}
	cloud.Iterate(func(p r3.Vector) bool {
		_, err = fmt.Fprintf(out, "%f %f %f\n", p.X, p.Y, p.Z)
		return err == nil
	})
	return err
}
