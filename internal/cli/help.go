package cli

const uriFormat = `URI Format:
	<transport>[{param=value,...}]+<layer1>[{param=value,...}]+<layer2>+...://[<ipv6 address>]:<port>

	Examples:
		tcp://[2001:db8::1]:4242
		tcp+tls{ca=./echo-apps-cert.pem}://[2001:db8::1]:4242
		tcp{hoplimit=16}+tls{ca=./ca.pem,servername=echo.example,minversion=1.3}+framed://[2001:db8::1]:4242
		tcp+tls{certfile=./echo-apps-cert.pem,keyfile=./echo-apps-key.pem}://[::]:4242

	Supported transports:
		- tcp: always IPv6 (tcp6); the address must be an IPv6 literal.
			params: hoplimit (optional, 0-255), tclass (optional, traffic class 0-255)

	Supported layers:
		- tls: Transport Layer Security, TLS 1.2 minimum by default.
			client params: ca (trust anchor PEM path), cert (optional, hex PEM for SPKI pinning),
				servername (optional, defaults to the dialed address), minversion (1.2|1.3), ciphers (default|NAME:NAME...)
			server params: certfile and keyfile (paths), or cert and key (hex PEM), minversion, ciphers
		- utls: TLS client with a browser ClientHello fingerprint.
			client params: ca, cert, servername, minversion, hello (chrome, firefox, ios, android, safari, edge, randomized, randomizednoalpn)
		- tlspsk: TLS 1.2 with pre-shared key. Cipher is TLS_PSK_WITH_AES_256_CBC_SHA.
			params: key (hex), identity (required on clients)
		- framed: 4-byte length prefix per message, must be used on both ends.
			params: maxsize (optional, defaults to 32768)
		- buffered: buffered reads and writes, flushed after every message. Place it above security layers.
			params: size (optional, defaults to 4096)

	Notes:
		- Without the framed layer, messages are sent as a raw byte stream with no delimiter.
		- When cert is given without ca on a tls/utls client, chain validation is replaced by SPKI pinning.
`
