package core

import (
	"expboard/protocol"

	"periph.io/x/conn/v3/physic"
)

func millivolts(v physic.ElectricPotential) int32 {
	return int32(v / physic.MilliVolt)
}

// FormatDiagnostics renders snap as one key=value line. newUnderVoltage is
// the number of under-voltage events since the previous line.
func FormatDiagnostics(snap HealthSnapshot, newUnderVoltage uint32) string {
	s := "power=" + snap.Power.String() +
		" vin=" + decivolts(millivolts(snap.Vin.Current)) + "V" +
		" min=" + decivolts(millivolts(snap.Vin.Lowest)) + "V" +
		" max=" + decivolts(millivolts(snap.Vin.Highest)) + "V"
	if snap.HasV12 {
		s += " v12=" + decivolts(millivolts(snap.V12.Current)) + "V" +
			" min=" + decivolts(millivolts(snap.V12.Lowest)) + "V" +
			" max=" + decivolts(millivolts(snap.V12.Highest)) + "V"
	}
	s += " uv=" + utoa(snap.UnderVoltageEvents) + " new_uv=" + utoa(newUnderVoltage) +
		" temp=" + snap.Temperature.String() +
		" shut=" + hex32(uint32(snap.Shutdown)) +
		" warn=" + hex32(uint32(snap.Warning)) +
		" short=" + hex32(uint32(snap.ShortToGround)) +
		" stall=" + hex32(uint32(snap.Stalled)) +
		" ola=" + hex32(uint32(snap.OpenLoadA)) +
		" olb=" + hex32(uint32(snap.OpenLoadB)) +
		" log=" + hex32(uint32(snap.ToLog)) +
		" pause=" + hex32(uint32(snap.ToPause)) +
		" rehome=" + hex32(uint32(snap.ToRehome))
	return s
}

// DriverStatusFormat is the dictionary format of the driver_status response.
const DriverStatusFormat = "power=%c temp=%c vin_mv=%u vin_min_mv=%u vin_max_mv=%u" +
	" has_v12=%c v12_mv=%u v12_min_mv=%u v12_max_mv=%u uv_events=%u" +
	" shutdown=%u warning=%u short=%u stalled=%u open_load_a=%u open_load_b=%u" +
	" to_log=%u to_pause=%u to_rehome=%u"

// EncodeStatusReport writes snap in DriverStatusFormat order.
// Voltages are sent in millivolts.
func EncodeStatusReport(output protocol.OutputBuffer, snap HealthSnapshot) {
	protocol.EncodeVLQUint(output, uint32(snap.Power))
	protocol.EncodeVLQUint(output, uint32(snap.Temperature))
	encodeRail(output, snap.Vin)
	protocol.EncodeVLQBool(output, snap.HasV12)
	encodeRail(output, snap.V12)
	protocol.EncodeVLQUint(output, snap.UnderVoltageEvents)
	for _, b := range reportBitmaps(&snap) {
		protocol.EncodeVLQUint(output, uint32(*b))
	}
}

func encodeRail(output protocol.OutputBuffer, r RailStats) {
	protocol.EncodeMillivolts(output, r.Current)
	protocol.EncodeMillivolts(output, r.Lowest)
	protocol.EncodeMillivolts(output, r.Highest)
}

func decodeRail(r *protocol.FieldReader) RailStats {
	return RailStats{Current: r.Millivolts(), Lowest: r.Millivolts(), Highest: r.Millivolts()}
}

// reportBitmaps lists the bitmap fields of a report in wire order.
func reportBitmaps(snap *HealthSnapshot) [9]*DriversBitmap {
	return [...]*DriversBitmap{
		&snap.Shutdown, &snap.Warning, &snap.ShortToGround, &snap.Stalled,
		&snap.OpenLoadA, &snap.OpenLoadB,
		&snap.ToLog, &snap.ToPause, &snap.ToRehome,
	}
}

// DecodeStatusReport reads a report written by EncodeStatusReport and
// advances data past it.
func DecodeStatusReport(data *[]byte) (HealthSnapshot, error) {
	r := protocol.NewFieldReader(data)
	var snap HealthSnapshot
	snap.Power = PowerState(r.Uint())
	snap.Temperature = TemperatureClass(r.Uint())
	snap.Vin = decodeRail(r)
	snap.HasV12 = r.Bool()
	snap.V12 = decodeRail(r)
	snap.UnderVoltageEvents = r.Uint()
	for _, b := range reportBitmaps(&snap) {
		*b = DriversBitmap(r.Uint())
	}
	if err := r.Err(); err != nil {
		return HealthSnapshot{}, err
	}
	return snap, nil
}
