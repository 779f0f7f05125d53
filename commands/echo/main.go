package main

import (
	"strings"

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
		Name:     "echo",
		Version:  "1.0.0",
		Summary:  "Echo text back to the caller",
		Features: []string{"text"},
	})
}

//export Register
func Register() uint64 {
	return plug.Commands("echo.say", "echo.upper")
}

//export Invoke
func Invoke(cmdPtr, cmdLen, payloadPtr, payloadLen uint32) uint64 {
	cmd := string(plug.ReadBytes(cmdPtr, cmdLen))
	payload := string(plug.ReadBytes(payloadPtr, payloadLen))
	plug.ResetAllocator()

	switch cmd {
	case "echo.say":
		return plug.WriteString(payload)
	case "echo.upper":
		return plug.WriteString(strings.ToUpper(payload))
	default:
		plug.LogError("unexpected command " + cmd)

		return plug.WriteString("unknown command " + cmd)
	}
}

func main() {}
