package scmi

import "fmt"

// Status is the signed 32-bit status word that starts every response.
type Status int32

const (
	StatusSuccess           Status = 0
	StatusNotSupported      Status = -1
	StatusInvalidParameters Status = -2
	StatusDenied            Status = -3
	StatusNotFound          Status = -4
	StatusOutOfRange        Status = -5
	StatusBusy              Status = -6
	StatusCommsError        Status = -7
	StatusGenericError      Status = -8
	StatusHardwareError     Status = -9
	StatusProtocolError     Status = -10
)

var statusNames = map[Status]string{
	StatusSuccess:           "SUCCESS",
	StatusNotSupported:      "NOT_SUPPORTED",
	StatusInvalidParameters: "INVALID_PARAMETERS",
	StatusDenied:            "DENIED",
	StatusNotFound:          "NOT_FOUND",
	StatusOutOfRange:        "OUT_OF_RANGE",
	StatusBusy:              "BUSY",
	StatusCommsError:        "COMMS_ERROR",
	StatusGenericError:      "GENERIC_ERROR",
	StatusHardwareError:     "HARDWARE_ERROR",
	StatusProtocolError:     "PROTOCOL_ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}
