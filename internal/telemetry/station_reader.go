package telemetry

import "context"

// commander is the narrow subset of executil.Runner this package needs.
type commander interface {
	Output(name string, args ...string) ([]byte, error)
}

// CommandStationReader reads station stats via "iw dev <if> station
// dump", satisfying StationReader against executil.Real/DevRunner/Mock.
type CommandStationReader struct {
	Cmd commander
}

func (r *CommandStationReader) StationDump(ctx context.Context, ifname string) ([]Station, error) {
	out, err := r.Cmd.Output("iw", "dev", ifname, "station", "dump")
	if err != nil {
		return nil, err
	}
	return parseStationDump(string(out)), nil
}
