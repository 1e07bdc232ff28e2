// monitor_script.go - Lua scripting for the machine monitor

/*
TKey Engine - whole-system emulator for the Tillitis TK1 security token
https://github.com/tillitis/tkey-engine
License: GPLv3 or later
*/

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// RunScript executes a Lua file with the machine bound in. Scripts get
// the monitor's primitives as globals, so register-bring-up sequences
// can be replayed instead of retyped:
//
//	poke(0xff000024, 0x4)        -- LED red
//	fifo("\x01\x02")             -- host-side FIFO bytes
//	advance(1000000)             -- 1ms of virtual time
//	print(string.format("%x", peek(0xff000020)))
func (mon *MachineMonitor) RunScript(path string) error {
	L := lua.NewState()
	defer L.Close()

	bus := mon.machine.Bus()

	L.SetGlobal("peek", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(bus.Read32(uint32(L.CheckInt64(1)))))
		return 1
	}))
	L.SetGlobal("poke", L.NewFunction(func(L *lua.LState) int {
		bus.Write32(uint32(L.CheckInt64(1)), uint32(L.CheckInt64(2)))
		return 0
	}))
	L.SetGlobal("peekb", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(bus.Read8(uint32(L.CheckInt64(1)))))
		return 1
	}))
	L.SetGlobal("pokeb", L.NewFunction(func(L *lua.LState) int {
		bus.Write8(uint32(L.CheckInt64(1)), uint8(L.CheckInt64(2)))
		return 0
	}))
	L.SetGlobal("advance", L.NewFunction(func(L *lua.LState) int {
		if err := mon.advance(L.CheckInt64(1)); err != nil {
			L.RaiseError("%v", err)
		}
		return 0
	}))
	L.SetGlobal("fifo", L.NewFunction(func(L *lua.LState) int {
		if mon.pipe == nil {
			L.RaiseError("fifo injection needs the pipe chardev")
		}
		mon.pipe.HostWrite([]byte(L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("drain", L.NewFunction(func(L *lua.LState) int {
		if mon.pipe == nil {
			L.RaiseError("drain needs the pipe chardev")
		}
		L.Push(lua.LString(mon.pipe.HostRead()))
		return 1
	}))
	L.SetGlobal("mode", L.NewFunction(func(L *lua.LState) int {
		if mon.machine.Snapshot().AppMode {
			L.Push(lua.LString("app"))
		} else {
			L.Push(lua.LString("firmware"))
		}
		return 1
	}))
	L.SetGlobal("device_reset", L.NewFunction(func(L *lua.LState) int {
		mon.machine.Device().Reset()
		return 0
	}))

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}
