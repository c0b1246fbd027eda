package safefmt

// si_code values from Linux's <bits/siginfo-consts.h>. golang.org/x/sys/unix
// does not expose these as named constants (only the raw siginfo_t layout),
// so they are reproduced here verbatim; they are part of the stable kernel
// ABI, not something this library chooses.
const (
	siUser    = 0
	siKernel  = 0x80
	siQueue   = -1
	siTimer   = -2
	siMesgQ   = -3
	siAsyncIO = -4
	siTkill   = -6

	segvMapErr = 1
	segvAccErr = 2

	busAdrAlgn = 1
	busAdrErr  = 2
	busObjErr  = 3

	fpeIntDiv = 1
	fpeIntOvf = 2
	fpeFltDiv = 3

	illIllOpc = 1
	illPrvOpc = 2
)
