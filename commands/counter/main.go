package main

import (
	"encoding/json"
	"strconv"

	plug "github.com/andrei-cloud/plughub/pkg/hubplugin"
)

// total survives hot reloads through the CaptureState/RestoreState hooks.
var total int64

type counterState struct {
	Total int64 `json:"total"`
}

//export Alloc
func Alloc(size uint32) uint32 {
	return plug.Alloc(size)
}

//export Free
func Free(ptr uint32) {
	plug.Free(ptr)
}

//export Manifest
func Manifest() uint64 {
	return plug.PackJSON(plug.Manifest{
		Name:           "counter",
		Version:        "1.2.0",
		Summary:        "Keeps a running total across reloads",
		DependsOn:      []string{"echo"},
		MinHostVersion: "1.0.0",
		Tags:           []string{"stateful"},
	})
}

//export Register
func Register() uint64 {
	return plug.Commands("counter.add", "counter.get", "counter.reset")
}

//export Invoke
func Invoke(cmdPtr, cmdLen, payloadPtr, payloadLen uint32) uint64 {
	cmd := string(plug.ReadBytes(cmdPtr, cmdLen))
	payload := string(plug.ReadBytes(payloadPtr, payloadLen))
	plug.ResetAllocator()

	switch cmd {
	case "counter.add":
		amount := int64(1)
		if payload != "" {
			parsed, err := strconv.ParseInt(payload, 10, 64)
			if err != nil {
				return plug.WriteString("ERR not a number: " + payload)
			}
			amount = parsed
		} else if step := plug.ConfigGet("counter.step"); step != "" {
			if parsed, err := strconv.ParseInt(step, 10, 64); err == nil {
				amount = parsed
			}
		}
		total += amount

		return plug.WriteString(strconv.FormatInt(total, 10))
	case "counter.get":
		return plug.WriteString(strconv.FormatInt(total, 10))
	case "counter.reset":
		total = 0

		return plug.WriteString("0")
	default:
		plug.LogError("unexpected command " + cmd)

		return plug.WriteString("unknown command " + cmd)
	}
}

//export CaptureState
func CaptureState() uint64 {
	plug.ResetAllocator()

	return plug.PackJSON(counterState{Total: total})
}

//export RestoreState
func RestoreState(ptr, length uint32) {
	var state counterState
	if err := json.Unmarshal(plug.ReadBytes(ptr, length), &state); err != nil {
		plug.LogError("failed to restore counter state: " + err.Error())

		return
	}
	total = state.Total
}

//export OnReloaded
func OnReloaded() {
	plug.LogInfo("counter reloaded; total=" + strconv.FormatInt(total, 10))
}

func main() {}
