// Package paginate walks cursor-paginated DFlow endpoints lazily. A page
// fetcher is turned into a pull-based iterator: nothing is requested
// until the first Next call, each page is fetched exactly once, and
// iteration ends when the backend stops returning a cursor. A consumed
// iterator is not restartable; call New again for a fresh walk.
package paginate
