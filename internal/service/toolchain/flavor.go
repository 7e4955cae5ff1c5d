package toolchain

import "github.com/oshokin/modloader-dist/internal/config"

// flavor holds the fixed arguments of one toolchain family.
type flavor struct {
	// objectExt is the extension the compiler gives object files.
	objectExt string
	// compileFlags go right after the compiler command.
	compileFlags []string
	// linkArgs returns the fixed linker arguments producing <name>.dll.
	linkArgs func(name string) []string
	// stubName returns the import library file name.
	stubName func(name string) string
}

var flavors = map[string]flavor{
	config.FlavorMSVC: {
		objectExt:    ".obj",
		compileFlags: []string{"/nologo", "/MD", "/DLUA_BUILD_AS_DLL", "/O2", "/c"},
		linkArgs: func(name string) []string {
			return []string{"/nologo", "/DLL", "/IMPLIB:" + name + ".lib", "/OUT:" + name + ".dll"}
		},
		stubName: func(name string) string {
			return name + ".lib"
		},
	},
	config.FlavorGNU: {
		objectExt:    ".o",
		compileFlags: []string{"-O2", "-DLUA_BUILD_AS_DLL", "-c"},
		linkArgs: func(name string) []string {
			return []string{"-shared", "-o", name + ".dll", "-Wl,--out-implib,lib" + name + ".dll.a"}
		},
		stubName: func(name string) string {
			return "lib" + name + ".dll.a"
		},
	},
}
