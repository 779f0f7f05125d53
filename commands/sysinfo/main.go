package main

import (
	"time"

	plug "github.com/andrei-cloud/plughub/pkg/hubplugin"
)

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
		Name:           "sysinfo",
		Version:        "0.9.0",
		Summary:        "Reports host clock, version and configured greeting",
		MinHostVersion: "1.0.0",
		Tags:           []string{"diagnostics"},
	})
}

//export Register
func Register() uint64 {
	return plug.Commands("sys.now", "sys.version", "sys.greet")
}

//export Invoke
func Invoke(cmdPtr, cmdLen, payloadPtr, payloadLen uint32) uint64 {
	cmd := string(plug.ReadBytes(cmdPtr, cmdLen))
	payload := string(plug.ReadBytes(payloadPtr, payloadLen))
	plug.ResetAllocator()

	switch cmd {
	case "sys.now":
		return plug.WriteString(plug.NowUTC().Format(time.RFC3339))
	case "sys.version":
		return plug.WriteString(plug.HostVersion())
	case "sys.greet":
		greeting := plug.ConfigGet("sysinfo.greeting")
		if greeting == "" {
			greeting = "hello"
		}
		if payload == "" {
			payload = "world"
		}

		return plug.WriteString(greeting + " " + payload)
	default:
		plug.LogError("unexpected command " + cmd)

		return plug.WriteString("unknown command " + cmd)
	}
}

func main() {}
