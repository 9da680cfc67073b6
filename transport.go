package git

// Default supported transports.
import (
	_ "github.com/awesome-os/universal-git-sub008/plumbing/transport/file" // file transport
	_ "github.com/awesome-os/universal-git-sub008/plumbing/transport/git"  // git transport
	_ "github.com/awesome-os/universal-git-sub008/plumbing/transport/http" // http transport
	_ "github.com/awesome-os/universal-git-sub008/plumbing/transport/ssh"  // ssh transport
)
