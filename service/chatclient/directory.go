package chatclient

import (
	"context"

	"LPChat/module/chat/model"
	"LPChat/tools/errs"
)

// Directory caches the catalog of rooms visible to the session, split
// into public and private sets. Snapshots are refreshed on demand; a
// stale list is acceptable, a crash is not, so failures surface as
// DirectoryUnavailable and the caller retries manually.
type Directory struct {
	catalog RoomCatalog

	public  []*model.Room
	private []*model.Room
	byID    map[string]*model.Room
}

func newDirectory(catalog RoomCatalog) *Directory {
	return &Directory{
		catalog: catalog,
		byID:    make(map[string]*model.Room),
	}
}

// refresh performs the two catalog queries. Network-bound: runs on the
// caller's goroutine, never on the event loop; the result is installed
// on the loop afterwards.
func (d *Directory) refresh(ctx context.Context, userID string) (public, private []*model.Room, err error) {
	public, err = d.catalog.ListPublicRooms(ctx)
	if err != nil {
		return nil, nil, errs.ErrDirectoryUnavailable.WrapMsg("list public rooms", "err", err)
	}
	private, err = d.catalog.ListPrivateRoomsFor(ctx, userID)
	if err != nil {
		return nil, nil, errs.ErrDirectoryUnavailable.WrapMsg("list private rooms", "err", err)
	}
	return public, private, nil
}

// install replaces the cached snapshot. Loop-side.
func (d *Directory) install(public, private []*model.Room) {
	d.public = public
	d.private = private
	d.byID = make(map[string]*model.Room, len(public)+len(private))
	for _, r := range public {
		d.byID[r.RoomID] = r
	}
	for _, r := range private {
		d.byID[r.RoomID] = r
	}
}

// add caches one room fetched outside the list queries (direct-room
// bootstrap).
func (d *Directory) add(r *model.Room) {
	if _, ok := d.byID[r.RoomID]; ok {
		return
	}
	d.byID[r.RoomID] = r
	if r.IsPrivate() {
		d.private = append(d.private, r)
	} else {
		d.public = append(d.public, r)
	}
}

// Rooms returns the cached snapshot.
func (d *Directory) Rooms() (public, private []*model.Room) {
	return append([]*model.Room(nil), d.public...), append([]*model.Room(nil), d.private...)
}

// Resolve looks a deep-linked room id up in the cache. RoomNotFound
// tells the caller to re-fetch the directory before giving up.
func (d *Directory) Resolve(roomID string) (*model.Room, error) {
	r, ok := d.byID[roomID]
	if !ok {
		return nil, errs.ErrRoomNotFound.WrapMsg("not in cached directory", "room", roomID)
	}
	return r, nil
}
