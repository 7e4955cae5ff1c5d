// Package toolchain drives an external C compiler and linker to turn the Lua
// sources into a Windows DLL with its link stub.
//
// Two flavors are supported: msvc (cl.exe and link.exe) and gnu (a
// gcc-compatible driver such as mingw-w64). Commands run through an injected
// Runner so the build logic can be tested without a real toolchain.
package toolchain
